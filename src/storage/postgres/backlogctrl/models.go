package backlogctrl

import (
	"time"

	"github.com/pgvector/pgvector-go"

	"sprintboard/src/core/backlog"
)

// Vector columns are unsized so the provider decides the dimension. A nil pointer is stored as SQL
// NULL, so "column IS NOT NULL" means "has an embedding".
func toVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

func fromVector(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

type Project struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BacklogItem struct {
	ID                 int64  `gorm:"primaryKey"`
	ProjectID          int64  `gorm:"not null;index"`
	SprintID           *int64 `gorm:"index"`
	Title              string `gorm:"not null"`
	Description        string `gorm:"type:text"`
	Status             string `gorm:"not null;default:todo"`
	Priority           string `gorm:"not null;default:medium"`
	StoryPoints        int
	Embedding          *pgvector.Vector `gorm:"type:vector"`
	EmbeddingUpdatedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Task struct {
	ID                 int64  `gorm:"primaryKey"`
	ProjectID          int64  `gorm:"not null;index"`
	BacklogItemID      int64  `gorm:"not null;index"`
	Title              string `gorm:"not null"`
	Description        string `gorm:"type:text"`
	Status             string `gorm:"not null;default:todo"`
	Assignee           string
	Embedding          *pgvector.Vector `gorm:"type:vector"`
	EmbeddingUpdatedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Documentation struct {
	ID                   int64            `gorm:"primaryKey"`
	ProjectID            int64            `gorm:"not null;index"`
	Title                string           `gorm:"not null"`
	Description          string           `gorm:"type:text"`
	Content              string           `gorm:"type:text"`
	TitleEmbedding       *pgvector.Vector `gorm:"type:vector"`
	DescriptionEmbedding *pgvector.Vector `gorm:"type:vector"`
	ContentEmbedding     *pgvector.Vector `gorm:"type:vector"`
	EmbeddingUpdatedAt   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Documentation) TableName() string { return "documentation" }

type Attachment struct {
	ID            int64  `gorm:"primaryKey"`
	BacklogItemID int64  `gorm:"not null;index"`
	FileName      string `gorm:"not null"`
	ContentType   string
	Size          int64
	ObjectKey     string `gorm:"not null;uniqueIndex"`
	CreatedAt     time.Time
}

func projectToDomain(r Project) backlog.Project {
	return backlog.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func itemFromDomain(i *backlog.BacklogItem) BacklogItem {
	return BacklogItem{
		ID:                 i.ID,
		ProjectID:          i.ProjectID,
		SprintID:           i.SprintID,
		Title:              i.Title,
		Description:        i.Description,
		Status:             string(i.Status),
		Priority:           string(i.Priority),
		StoryPoints:        i.StoryPoints,
		Embedding:          toVector(i.Vector),
		EmbeddingUpdatedAt: i.EmbeddingUpdatedAt,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func itemToDomain(r BacklogItem) backlog.BacklogItem {
	return backlog.BacklogItem{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		SprintID:           r.SprintID,
		Title:              r.Title,
		Description:        r.Description,
		Status:             backlog.Status(r.Status),
		Priority:           backlog.Priority(r.Priority),
		StoryPoints:        r.StoryPoints,
		Vector:             fromVector(r.Embedding),
		EmbeddingUpdatedAt: r.EmbeddingUpdatedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func taskFromDomain(t *backlog.Task) Task {
	return Task{
		ID:                 t.ID,
		ProjectID:          t.ProjectID,
		BacklogItemID:      t.BacklogItemID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             string(t.Status),
		Assignee:           t.Assignee,
		Embedding:          toVector(t.Vector),
		EmbeddingUpdatedAt: t.EmbeddingUpdatedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func taskToDomain(r Task) backlog.Task {
	return backlog.Task{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		BacklogItemID:      r.BacklogItemID,
		Title:              r.Title,
		Description:        r.Description,
		Status:             backlog.Status(r.Status),
		Assignee:           r.Assignee,
		Vector:             fromVector(r.Embedding),
		EmbeddingUpdatedAt: r.EmbeddingUpdatedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func documentationToDomain(r Documentation) backlog.Documentation {
	return backlog.Documentation{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		Title:              r.Title,
		Description:        r.Description,
		Content:            r.Content,
		TitleVector:        fromVector(r.TitleEmbedding),
		DescriptionVector:  fromVector(r.DescriptionEmbedding),
		ContentVector:      fromVector(r.ContentEmbedding),
		EmbeddingUpdatedAt: r.EmbeddingUpdatedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func attachmentToDomain(r Attachment) backlog.Attachment {
	return backlog.Attachment{
		ID:            r.ID,
		BacklogItemID: r.BacklogItemID,
		FileName:      r.FileName,
		ContentType:   r.ContentType,
		Size:          r.Size,
		ObjectKey:     r.ObjectKey,
		CreatedAt:     r.CreatedAt,
	}
}
