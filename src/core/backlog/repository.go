package backlog

import (
	"context"
	"errors"
	"io"
	"time"

	"sprintboard/src/core/search"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ItemFilter narrows ListBacklogItems. Zero values mean "any".
type ItemFilter struct {
	ProjectID int64
	SprintID  *int64
	Status    Status
	Offset    int
	Limit     int
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	ProjectID     int64
	BacklogItemID int64
	Offset        int
	Limit         int
}

// CandidateFilter selects search candidates inside one project.
type CandidateFilter struct {
	ProjectID int64
	SprintID  *int64
	// BacklogItemID scopes task candidates to one backlog item.
	BacklogItemID int64
	// Terms keeps rows whose text contains any of them, case-insensitively. Empty keeps all rows.
	Terms []string
	// ExcludeIDs drops already-selected rows.
	ExcludeIDs []int64
	// WithEmbedding keeps only rows with a stored vector. For documentation Field picks the column.
	WithEmbedding bool
	Field         search.Field
	Limit         int
}

// Repository is the persistence port of the backlog service.
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, offset, limit int) ([]Project, error)

	CreateBacklogItem(ctx context.Context, item *BacklogItem) error
	GetBacklogItem(ctx context.Context, id int64) (*BacklogItem, error)
	ListBacklogItems(ctx context.Context, filter ItemFilter) ([]BacklogItem, error)
	UpdateBacklogItem(ctx context.Context, item *BacklogItem) error
	DeleteBacklogItem(ctx context.Context, id int64) error
	SaveBacklogItemEmbedding(ctx context.Context, id int64, vector []float32, at time.Time) error
	StaleBacklogItems(ctx context.Context, afterID int64, limit int) ([]BacklogItem, error)
	BacklogCandidates(ctx context.Context, filter CandidateFilter) ([]BacklogItem, error)

	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	SaveTaskEmbedding(ctx context.Context, id int64, vector []float32, at time.Time) error
	StaleTasks(ctx context.Context, afterID int64, limit int) ([]Task, error)
	TaskCandidates(ctx context.Context, filter CandidateFilter) ([]Task, error)

	CreateDocumentation(ctx context.Context, doc *Documentation) error
	GetDocumentation(ctx context.Context, id int64) (*Documentation, error)
	ListDocumentation(ctx context.Context, projectID int64, offset, limit int) ([]Documentation, error)
	SaveDocumentationEmbeddings(ctx context.Context, id int64, vectors DocumentationVectors, at time.Time) error
	StaleDocumentation(ctx context.Context, afterID int64, limit int) ([]Documentation, error)
	DocumentationCandidates(ctx context.Context, filter CandidateFilter) ([]Documentation, error)

	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)
	ListAttachments(ctx context.Context, backlogItemID int64) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// ObjectStore keeps attachment bytes.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}

// Embedder is the subset of the embedding gateway the service uses.
type Embedder interface {
	search.Embedder
	EmbedBatch(ctx context.Context, texts []string) [][]float32
}

// Scheduler queues an asynchronous embedding refresh.
type Scheduler interface {
	ScheduleEmbeddingRefresh(ctx context.Context, kind Kind, id int64) error
}
