package models

import (
	"time"
)

// Invocation status constants
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusPending = "pending"
)

// Stage is a step of the export pipeline
type Stage string

const (
	StageIdle       Stage = "idle"
	StageConnecting Stage = "connecting"
	StageQuerying   Stage = "querying"
	StageRendering  Stage = "rendering"
	StageUploading  Stage = "uploading"
	StageClosing    Stage = "closing"
	StageDone       Stage = "done"
)

// Invocation is the record of one export run
type Invocation struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Stage        Stage     `json:"stage"`
	FailedStage  Stage     `json:"failed_stage,omitempty"`
	Message      string    `json:"message,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Columns      int       `json:"columns"`
	Rows         int       `json:"rows"`
	Bytes        int       `json:"bytes"`
	Bucket       string    `json:"bucket,omitempty"`
	Key          string    `json:"key,omitempty"`
	Location     string    `json:"location,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// ResultSet is the materialized output of the stored procedure
type ResultSet struct {
	Columns []string
	Rows    [][]any
}
