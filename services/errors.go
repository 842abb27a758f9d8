package services

import (
	"errors"
	"fmt"

	"sp-export/models"
)

// ErrorKind classifies why an export failed.
type ErrorKind string

const (
	ConfigError     ErrorKind = "CONFIG_ERROR"
	ConnectionError ErrorKind = "CONNECTION_ERROR"
	QueryError      ErrorKind = "QUERY_ERROR"
	RenderError     ErrorKind = "RENDER_ERROR"
	UploadError     ErrorKind = "UPLOAD_ERROR"
	InternalError   ErrorKind = "INTERNAL_ERROR"
)

var kindPrefixes = map[ErrorKind]string{
	ConfigError:     "Configuration error",
	ConnectionError: "Database connection error",
	QueryError:      "SQL Error",
	RenderError:     "Error rendering spreadsheet",
	UploadError:     "Error uploading file to S3",
	InternalError:   "Error",
}

// ExportError is the failure of one pipeline stage.
type ExportError struct {
	Kind  ErrorKind
	Stage models.Stage
	Err   error
}

func (e *ExportError) Error() string {
	prefix, ok := kindPrefixes[e.Kind]
	if !ok {
		prefix = kindPrefixes[InternalError]
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func newExportError(kind ErrorKind, stage models.Stage, err error) *ExportError {
	return &ExportError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the kind of the first ExportError in err's chain, or
// InternalError for anything else.
func KindOf(err error) ErrorKind {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}
	return InternalError
}

func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// asExportError keeps an existing classification and wraps anything else.
func asExportError(err error, kind ErrorKind, stage models.Stage) *ExportError {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr
	}
	return newExportError(kind, stage, err)
}
