package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalysisJobStatus represents the status of a background analysis job
type AnalysisJobStatus string

const (
	JobStatusPending    AnalysisJobStatus = "pending"
	JobStatusInProgress AnalysisJobStatus = "in_progress"
	JobStatusCompleted  AnalysisJobStatus = "completed"
	JobStatusFailed     AnalysisJobStatus = "failed"
)

// JobStep represents a step in a background analysis job
type JobStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// JobSteps represents a list of job steps
type JobSteps []JobStep

// Value implements driver.Valuer for JSONB
func (s JobSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *JobSteps) Scan(value interface{}) error {
	if value == nil {
		*s = make(JobSteps, 0)
		return nil
	}

	// Handle different types that pgx might return for JSONB
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(JobSteps, 0)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(JobSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// JobResult wraps the envelope a completed job produced
type JobResult struct {
	Envelope *ResultEnvelope `json:"envelope,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (r JobResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *JobResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// AnalysisJob tracks an asynchronous tool run (letter generation) so the
// HTTP layer can return immediately and clients poll for progress.
type AnalysisJob struct {
	ID           uuid.UUID         `json:"id"`
	ToolName     string            `json:"tool_name"`
	Question     string            `json:"question"`
	Status       AnalysisJobStatus `json:"status"`
	CurrentStep  *string           `json:"current_step,omitempty"`
	Steps        JobSteps          `json:"steps"`
	Result       *JobResult        `json:"result,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}
