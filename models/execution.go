package models

import (
	"encoding/json"
	"time"
)

// SuccessMessage is the confirmation returned in the body of a successful invocation
const SuccessMessage = "Connection successful and file uploaded successfully"

// Response is what the function returns to its trigger
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody is the JSON document carried in Response.Body on success
type SuccessBody struct {
	Message string `json:"message"`
}

// ExecutionRequest represents a queued export (sent to Redis queue)
type ExecutionRequest struct {
	InvocationID string          `json:"invocationId"`
	Event        json.RawMessage `json:"event,omitempty"`
	QueuedAt     time.Time       `json:"queuedAt"`
}

// EnqueueResponse is returned when an export is queued for the worker
type EnqueueResponse struct {
	InvocationID string `json:"invocation_id"`
	Status       string `json:"status"`
}
