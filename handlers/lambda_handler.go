package handlers

import (
	"context"
	"encoding/json"

	"sp-export/models"
	"sp-export/services"
)

// LambdaHandler adapts the export to lambda.Start. Failures are reported in
// the response, never as a handler error.
func LambdaHandler(svc *services.ExportService) func(context.Context, json.RawMessage) (models.Response, error) {
	return func(ctx context.Context, event json.RawMessage) (models.Response, error) {
		return svc.Invoke(ctx, event), nil
	}
}
