package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const (
	TaskTypeEmbeddingRefresh = "embedding_refresh"

	DefaultTopic = "embedding-jobs"
)

var ErrJobNotFound = errors.New("job not found")

// Job represents a background job
type Job struct {
	ID        int             `gorm:"primaryKey" json:"id"`
	TaskType  string          `gorm:"not null;index" json:"task_type"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload"`
	Status    JobStatus       `gorm:"not null;index" json:"status"`
	Attempts  int             `json:"attempts"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EmbeddingRefreshPayload names the entity whose embedding should be recomputed.
type EmbeddingRefreshPayload struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int) (*Job, error)
	// UpdateStatus sets the status; moving to running also counts an attempt.
	UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error
}
