package backlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sprintboard/src/core/search"
)

// Status is the workflow state shared by backlog items and tasks.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriorityMedium:
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityCritical:
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
	}
}

// Kind names an embeddable entity type. It is the payload discriminator of refresh jobs.
type Kind string

const (
	KindBacklogItem   Kind = "backlog_item"
	KindTask          Kind = "task"
	KindDocumentation Kind = "documentation"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBacklogItem, KindTask, KindDocumentation:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, s)
	}
}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BacklogItem struct {
	ID                 int64      `json:"id"`
	ProjectID          int64      `json:"project_id"`
	SprintID           *int64     `json:"sprint_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             Status     `json:"status"`
	Priority           Priority   `json:"priority"`
	StoryPoints        int        `json:"story_points"`
	Vector             []float32  `json:"-"`
	EmbeddingUpdatedAt *time.Time `json:"embedding_updated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (b BacklogItem) DocumentID() string   { return strconv.FormatInt(b.ID, 10) }
func (b BacklogItem) Embedding() []float32 { return b.Vector }

func (b BacklogItem) SearchableContent() string {
	return labeled(
		"Title", b.Title,
		"Status", string(b.Status),
		"Priority", string(b.Priority),
		"Description", b.Description,
	)
}

func (b BacklogItem) NeedsEmbeddingUpdate() bool {
	return needsEmbeddingUpdate(b.EmbeddingUpdatedAt, b.UpdatedAt)
}

type Task struct {
	ID                 int64      `json:"id"`
	ProjectID          int64      `json:"project_id"`
	BacklogItemID      int64      `json:"backlog_item_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             Status     `json:"status"`
	Assignee           string     `json:"assignee,omitempty"`
	Vector             []float32  `json:"-"`
	EmbeddingUpdatedAt *time.Time `json:"embedding_updated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (t Task) DocumentID() string   { return strconv.FormatInt(t.ID, 10) }
func (t Task) Embedding() []float32 { return t.Vector }

func (t Task) SearchableContent() string {
	return labeled(
		"Title", t.Title,
		"Status", string(t.Status),
		"Assignee", t.Assignee,
		"Description", t.Description,
	)
}

func (t Task) NeedsEmbeddingUpdate() bool {
	return needsEmbeddingUpdate(t.EmbeddingUpdatedAt, t.UpdatedAt)
}

// Documentation is a project page with one embedding per text field.
type Documentation struct {
	ID                 int64      `json:"id"`
	ProjectID          int64      `json:"project_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Content            string     `json:"content"`
	TitleVector        []float32  `json:"-"`
	DescriptionVector  []float32  `json:"-"`
	ContentVector      []float32  `json:"-"`
	EmbeddingUpdatedAt *time.Time `json:"embedding_updated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (d Documentation) DocumentID() string { return strconv.FormatInt(d.ID, 10) }

// Embedding returns the content vector.
func (d Documentation) Embedding() []float32 { return d.ContentVector }

func (d Documentation) FieldEmbedding(field search.Field) []float32 {
	switch field {
	case search.FieldTitle:
		return d.TitleVector
	case search.FieldDescription:
		return d.DescriptionVector
	case search.FieldContent:
		return d.ContentVector
	default:
		return nil
	}
}

func (d Documentation) FieldText(field search.Field) string {
	switch field {
	case search.FieldTitle:
		return d.Title
	case search.FieldDescription:
		return d.Description
	case search.FieldContent:
		return d.Content
	default:
		return ""
	}
}

func (d Documentation) SearchableContent() string {
	return labeled(
		"Title", d.Title,
		"Description", d.Description,
		"Content", d.Content,
	)
}

func (d Documentation) NeedsEmbeddingUpdate() bool {
	return needsEmbeddingUpdate(d.EmbeddingUpdatedAt, d.UpdatedAt)
}

// DocumentationVectors carries the per-field vectors of one documentation page. A nil entry leaves
// the stored vector untouched.
type DocumentationVectors struct {
	Title       []float32
	Description []float32
	Content     []float32
}

type Attachment struct {
	ID            int64     `json:"id"`
	BacklogItemID int64     `json:"backlog_item_id"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	ObjectKey     string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

func needsEmbeddingUpdate(embeddedAt *time.Time, updatedAt time.Time) bool {
	return embeddedAt == nil || updatedAt.After(*embeddedAt)
}

// labeled renders "Label: value" lines, skipping blank values.
func labeled(pairs ...string) string {
	var sb strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		value := strings.TrimSpace(pairs[i+1])
		if value == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pairs[i])
		sb.WriteString(": ")
		sb.WriteString(value)
	}
	return sb.String()
}
