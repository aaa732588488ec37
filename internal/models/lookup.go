package models

import (
	"encoding/json"
	"time"
)

// BatchRequest represents a batch lookup request. Every criteria object
// maps search terms (taxnum, name, address, idnum) to values.
type BatchRequest struct {
	Command  string              `json:"command" binding:"required" example:"pinpoint"`
	Criteria []map[string]string `json:"criteria" binding:"required,min=1"`
}

// BatchResponse represents a batch lookup response. Results is a result
// envelope keyed by the criteria representation.
type BatchResponse struct {
	Total         int                    `json:"total" example:"3"`
	SuccessCount  int                    `json:"success_count" example:"2"`
	ErrorCount    int                    `json:"error_count" example:"1"`
	Results       map[string]interface{} `json:"results"`
	Errors        map[string]string      `json:"errors,omitempty"`
	ExecutionTime string                 `json:"execution_time" example:"1m15s"`
	Timestamp     time.Time              `json:"timestamp" example:"2026-01-15T10:30:00Z"`
}

// RunInfo is one entry of the run history
type RunInfo struct {
	ID         string          `json:"id" example:"6f1c8d52-3a5e-4f0e-9b1d-2b7c1f0e8a11"`
	Site       string          `json:"site" example:"business"`
	Command    string          `json:"command" example:"sweep"`
	Criteria   string          `json:"criteria" example:"{'name': 'acme'}"`
	Status     string          `json:"status" example:"success"`
	Attempts   int             `json:"attempts" example:"2"`
	DurationMs int64           `json:"duration_ms" example:"8400"`
	Result     json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at" example:"2026-01-15T10:30:00Z"`
}

// RunsResponse lists runs, newest first
type RunsResponse struct {
	Runs  []RunInfo `json:"runs"`
	Count int       `json:"count" example:"1"`
}
