package backlogctrl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/search"
)

// Repository is the postgres implementation of backlog.Repository.
type Repository struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

var _ backlog.Repository = (*Repository)(nil)

func NewRepository(db *gorm.DB, node int64) (*Repository, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &Repository{
		db:        db,
		snowflake: n,
	}, nil
}

// AutoMigrate enables the vector extension and creates or updates the backlog tables.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	return db.AutoMigrate(&Project{}, &BacklogItem{}, &Task{}, &Documentation{}, &Attachment{})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, backlog.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func (r *Repository) CreateProject(ctx context.Context, p *backlog.Project) error {
	row := Project{
		ID:          r.snowflake.Generate().Int64(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*p = projectToDomain(row)
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id int64) (*backlog.Project, error) {
	var row Project
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "project")
	}
	p := projectToDomain(row)
	return &p, nil
}

func (r *Repository) ListProjects(ctx context.Context, offset, limit int) ([]backlog.Project, error) {
	var rows []Project
	if err := r.db.WithContext(ctx).Order("created_at DESC, id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]backlog.Project, len(rows))
	for i, row := range rows {
		out[i] = projectToDomain(row)
	}
	return out, nil
}

func (r *Repository) CreateBacklogItem(ctx context.Context, item *backlog.BacklogItem) error {
	row := itemFromDomain(item)
	row.ID = r.snowflake.Generate().Int64()
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*item = itemToDomain(row)
	return nil
}

func (r *Repository) GetBacklogItem(ctx context.Context, id int64) (*backlog.BacklogItem, error) {
	var row BacklogItem
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "backlog item")
	}
	item := itemToDomain(row)
	return &item, nil
}

func (r *Repository) ListBacklogItems(ctx context.Context, f backlog.ItemFilter) ([]backlog.BacklogItem, error) {
	q := r.db.WithContext(ctx).Model(&BacklogItem{})
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.SprintID != nil {
		q = q.Where("sprint_id = ?", *f.SprintID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var rows []BacklogItem
	if err := q.Order("created_at DESC, id").Offset(f.Offset).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list backlog items: %w", err)
	}
	return itemsToDomain(rows), nil
}

// UpdateBacklogItem writes the editable columns. Embedding columns are owned by
// SaveBacklogItemEmbedding.
func (r *Repository) UpdateBacklogItem(ctx context.Context, item *backlog.BacklogItem) error {
	res := r.db.WithContext(ctx).Model(&BacklogItem{ID: item.ID}).UpdateColumns(map[string]any{
		"sprint_id":    item.SprintID,
		"title":        item.Title,
		"description":  item.Description,
		"status":       string(item.Status),
		"priority":     string(item.Priority),
		"story_points": item.StoryPoints,
		"updated_at":   item.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("backlog item %d: %w", item.ID, backlog.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteBacklogItem(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("backlog_item_id = ?", id).Delete(&Task{}).Error; err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		return tx.Delete(&BacklogItem{}, id).Error
	})
}

func (r *Repository) SaveBacklogItemEmbedding(ctx context.Context, id int64, vector []float32, at time.Time) error {
	return r.saveEmbedding(ctx, &BacklogItem{ID: id}, map[string]any{"embedding": pgvector.NewVector(vector)}, at)
}

func (r *Repository) StaleBacklogItems(ctx context.Context, afterID int64, limit int) ([]backlog.BacklogItem, error) {
	var rows []BacklogItem
	if err := r.stale(ctx, afterID, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale backlog items: %w", err)
	}
	return itemsToDomain(rows), nil
}

func (r *Repository) BacklogCandidates(ctx context.Context, f backlog.CandidateFilter) ([]backlog.BacklogItem, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", f.ProjectID)
	if f.SprintID != nil {
		q = q.Where("sprint_id = ?", *f.SprintID)
	}
	q = applyCandidateFilter(q, f, "embedding", "title", "description")

	var rows []BacklogItem
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load backlog candidates: %w", err)
	}
	return itemsToDomain(rows), nil
}

func (r *Repository) CreateTask(ctx context.Context, task *backlog.Task) error {
	row := taskFromDomain(task)
	row.ID = r.snowflake.Generate().Int64()
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*task = taskToDomain(row)
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id int64) (*backlog.Task, error) {
	var row Task
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "task")
	}
	task := taskToDomain(row)
	return &task, nil
}

func (r *Repository) ListTasks(ctx context.Context, f backlog.TaskFilter) ([]backlog.Task, error) {
	q := r.db.WithContext(ctx).Model(&Task{})
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.BacklogItemID != 0 {
		q = q.Where("backlog_item_id = ?", f.BacklogItemID)
	}

	var rows []Task
	if err := q.Order("created_at, id").Offset(f.Offset).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

func (r *Repository) UpdateTask(ctx context.Context, task *backlog.Task) error {
	res := r.db.WithContext(ctx).Model(&Task{ID: task.ID}).UpdateColumns(map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"status":      string(task.Status),
		"assignee":    task.Assignee,
		"updated_at":  task.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", task.ID, backlog.ErrNotFound)
	}
	return nil
}

func (r *Repository) SaveTaskEmbedding(ctx context.Context, id int64, vector []float32, at time.Time) error {
	return r.saveEmbedding(ctx, &Task{ID: id}, map[string]any{"embedding": pgvector.NewVector(vector)}, at)
}

func (r *Repository) StaleTasks(ctx context.Context, afterID int64, limit int) ([]backlog.Task, error) {
	var rows []Task
	if err := r.stale(ctx, afterID, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale tasks: %w", err)
	}
	return tasksToDomain(rows), nil
}

func (r *Repository) TaskCandidates(ctx context.Context, f backlog.CandidateFilter) ([]backlog.Task, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", f.ProjectID)
	if f.BacklogItemID != 0 {
		q = q.Where("backlog_item_id = ?", f.BacklogItemID)
	}
	q = applyCandidateFilter(q, f, "embedding", "title", "description")

	var rows []Task
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load task candidates: %w", err)
	}
	return tasksToDomain(rows), nil
}

func (r *Repository) CreateDocumentation(ctx context.Context, doc *backlog.Documentation) error {
	row := Documentation{
		ID:          r.snowflake.Generate().Int64(),
		ProjectID:   doc.ProjectID,
		Title:       doc.Title,
		Description: doc.Description,
		Content:     doc.Content,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*doc = documentationToDomain(row)
	return nil
}

func (r *Repository) GetDocumentation(ctx context.Context, id int64) (*backlog.Documentation, error) {
	var row Documentation
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "documentation")
	}
	doc := documentationToDomain(row)
	return &doc, nil
}

func (r *Repository) ListDocumentation(ctx context.Context, projectID int64, offset, limit int) ([]backlog.Documentation, error) {
	var rows []Documentation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documentation: %w", err)
	}
	return documentationsToDomain(rows), nil
}

// SaveDocumentationEmbeddings stores the non-nil field vectors.
func (r *Repository) SaveDocumentationEmbeddings(ctx context.Context, id int64, v backlog.DocumentationVectors, at time.Time) error {
	columns := map[string]any{}
	if v.Title != nil {
		columns["title_embedding"] = pgvector.NewVector(v.Title)
	}
	if v.Description != nil {
		columns["description_embedding"] = pgvector.NewVector(v.Description)
	}
	if v.Content != nil {
		columns["content_embedding"] = pgvector.NewVector(v.Content)
	}
	return r.saveEmbedding(ctx, &Documentation{ID: id}, columns, at)
}

func (r *Repository) StaleDocumentation(ctx context.Context, afterID int64, limit int) ([]backlog.Documentation, error) {
	var rows []Documentation
	if err := r.stale(ctx, afterID, limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale documentation: %w", err)
	}
	return documentationsToDomain(rows), nil
}

// DocumentationCandidates filters on the column of f.Field, both for the vector and for the terms.
func (r *Repository) DocumentationCandidates(ctx context.Context, f backlog.CandidateFilter) ([]backlog.Documentation, error) {
	column := f.Field.String()
	if _, err := search.ParseField(column); err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Where("project_id = ?", f.ProjectID)
	q = applyCandidateFilter(q, f, column+"_embedding", column)

	var rows []Documentation
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load documentation candidates: %w", err)
	}
	return documentationsToDomain(rows), nil
}

func (r *Repository) CreateAttachment(ctx context.Context, a *backlog.Attachment) error {
	row := Attachment{
		ID:            r.snowflake.Generate().Int64(),
		BacklogItemID: a.BacklogItemID,
		FileName:      a.FileName,
		ContentType:   a.ContentType,
		Size:          a.Size,
		ObjectKey:     a.ObjectKey,
		CreatedAt:     a.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*a = attachmentToDomain(row)
	return nil
}

func (r *Repository) GetAttachment(ctx context.Context, id int64) (*backlog.Attachment, error) {
	var row Attachment
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "attachment")
	}
	a := attachmentToDomain(row)
	return &a, nil
}

func (r *Repository) ListAttachments(ctx context.Context, backlogItemID int64) ([]backlog.Attachment, error) {
	var rows []Attachment
	if err := r.db.WithContext(ctx).Where("backlog_item_id = ?", backlogItemID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	out := make([]backlog.Attachment, len(rows))
	for i, row := range rows {
		out[i] = attachmentToDomain(row)
	}
	return out, nil
}

func (r *Repository) DeleteAttachment(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&Attachment{}, id).Error
}

// saveEmbedding updates vector columns without touching updated_at.
func (r *Repository) saveEmbedding(ctx context.Context, model any, columns map[string]any, at time.Time) error {
	columns["embedding_updated_at"] = at
	res := r.db.WithContext(ctx).Model(model).UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return backlog.ErrNotFound
	}
	return nil
}

// stale pages through entities needing an embedding in id order, starting after afterID.
func (r *Repository) stale(ctx context.Context, afterID int64, limit int) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("embedding_updated_at IS NULL OR updated_at > embedding_updated_at").
		Order("id").
		Limit(limit)
}

// applyCandidateFilter adds the vector, term, exclusion and limit clauses shared by all candidate
// queries. Terms match any of textColumns with ILIKE.
func applyCandidateFilter(q *gorm.DB, f backlog.CandidateFilter, vectorColumn string, textColumns ...string) *gorm.DB {
	if f.WithEmbedding {
		q = q.Where(vectorColumn + " IS NOT NULL")
	}
	if len(f.Terms) > 0 {
		var clauses []string
		var args []any
		for _, term := range f.Terms {
			pattern := "%" + escapeLike(term) + "%"
			for _, col := range textColumns {
				clauses = append(clauses, col+" ILIKE ?")
				args = append(args, pattern)
			}
		}
		q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludeIDs)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q.Order("updated_at DESC, id")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func itemsToDomain(rows []BacklogItem) []backlog.BacklogItem {
	out := make([]backlog.BacklogItem, len(rows))
	for i, row := range rows {
		out[i] = itemToDomain(row)
	}
	return out
}

func tasksToDomain(rows []Task) []backlog.Task {
	out := make([]backlog.Task, len(rows))
	for i, row := range rows {
		out[i] = taskToDomain(row)
	}
	return out
}

func documentationsToDomain(rows []Documentation) []backlog.Documentation {
	out := make([]backlog.Documentation, len(rows))
	for i, row := range rows {
		out[i] = documentationToDomain(row)
	}
	return out
}
