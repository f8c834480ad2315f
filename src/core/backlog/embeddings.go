package backlog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultRefreshBatch = 32

// RefreshStats summarizes one RefreshStaleEmbeddings pass. LastID is the cursor for the next pass.
type RefreshStats struct {
	Scanned   int
	Refreshed int
	LastID    int64
}

// scheduleRefresh queues an embedding refresh. Failures only get logged; the write already happened.
func (s *Service) scheduleRefresh(ctx context.Context, kind Kind, id int64) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleEmbeddingRefresh(ctx, kind, id); err != nil {
		s.logger.Error(err, "failed to schedule embedding refresh", "kind", kind, "id", id)
	}
}

// EnsureEmbeddingFresh recomputes the entity's embedding when it is missing or older than the
// entity. It reports whether a new vector was stored. A gateway that yields nothing leaves the
// entity stale without error so a later pass retries it.
func (s *Service) EnsureEmbeddingFresh(ctx context.Context, kind Kind, id int64) (bool, error) {
	switch kind {
	case KindBacklogItem:
		item, err := s.repo.GetBacklogItem(ctx, id)
		if err != nil {
			return false, err
		}
		if !item.NeedsEmbeddingUpdate() {
			return false, nil
		}
		return s.storeVector(ctx, kind, id, s.embed(ctx, item.SearchableContent()), item.UpdatedAt)

	case KindTask:
		task, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return false, err
		}
		if !task.NeedsEmbeddingUpdate() {
			return false, nil
		}
		return s.storeVector(ctx, kind, id, s.embed(ctx, task.SearchableContent()), task.UpdatedAt)

	case KindDocumentation:
		doc, err := s.repo.GetDocumentation(ctx, id)
		if err != nil {
			return false, err
		}
		if !doc.NeedsEmbeddingUpdate() {
			return false, nil
		}
		vectors := s.embedBatch(ctx, documentationTexts(*doc))
		return s.storeDocumentationVectors(ctx, *doc, vectors[0], vectors[1], vectors[2])

	default:
		return false, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, kind)
	}
}

// RefreshStaleEmbeddings embeds up to batch stale entities of kind with id greater than afterID
// using one batch call. Entities are scanned in id order.
func (s *Service) RefreshStaleEmbeddings(ctx context.Context, kind Kind, afterID int64, batch int) (RefreshStats, error) {
	if batch <= 0 {
		batch = DefaultRefreshBatch
	}

	var stats RefreshStats
	switch kind {
	case KindBacklogItem:
		items, err := s.repo.StaleBacklogItems(ctx, afterID, batch)
		if err != nil {
			return stats, fmt.Errorf("failed to load stale backlog items: %w", err)
		}
		texts := make([]string, len(items))
		for i, item := range items {
			texts[i] = item.SearchableContent()
		}
		vectors := s.embedBatch(ctx, texts)
		stats.Scanned = len(items)
		if len(items) > 0 {
			stats.LastID = items[len(items)-1].ID
		}
		for i, item := range items {
			ok, err := s.storeVector(ctx, kind, item.ID, vectors[i], item.UpdatedAt)
			if err != nil {
				return stats, err
			}
			if ok {
				stats.Refreshed++
			}
		}

	case KindTask:
		tasks, err := s.repo.StaleTasks(ctx, afterID, batch)
		if err != nil {
			return stats, fmt.Errorf("failed to load stale tasks: %w", err)
		}
		texts := make([]string, len(tasks))
		for i, task := range tasks {
			texts[i] = task.SearchableContent()
		}
		vectors := s.embedBatch(ctx, texts)
		stats.Scanned = len(tasks)
		if len(tasks) > 0 {
			stats.LastID = tasks[len(tasks)-1].ID
		}
		for i, task := range tasks {
			ok, err := s.storeVector(ctx, kind, task.ID, vectors[i], task.UpdatedAt)
			if err != nil {
				return stats, err
			}
			if ok {
				stats.Refreshed++
			}
		}

	case KindDocumentation:
		docs, err := s.repo.StaleDocumentation(ctx, afterID, batch)
		if err != nil {
			return stats, fmt.Errorf("failed to load stale documentation: %w", err)
		}
		texts := make([]string, 0, len(docs)*3)
		for _, doc := range docs {
			texts = append(texts, documentationTexts(doc)...)
		}
		vectors := s.embedBatch(ctx, texts)
		stats.Scanned = len(docs)
		if len(docs) > 0 {
			stats.LastID = docs[len(docs)-1].ID
		}
		for i, doc := range docs {
			ok, err := s.storeDocumentationVectors(ctx, doc, vectors[3*i], vectors[3*i+1], vectors[3*i+2])
			if err != nil {
				return stats, err
			}
			if ok {
				stats.Refreshed++
			}
		}

	default:
		return stats, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, kind)
	}

	s.logger.V(1).Info("refreshed stale embeddings", "kind", kind, "after", afterID,
		"scanned", stats.Scanned, "refreshed", stats.Refreshed)
	return stats, nil
}

func (s *Service) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	return s.embedder.Embed(ctx, text)
}

func (s *Service) embedBatch(ctx context.Context, texts []string) [][]float32 {
	if s.embedder == nil || len(texts) == 0 {
		return make([][]float32, len(texts))
	}
	out := s.embedder.EmbedBatch(ctx, texts)
	if len(out) != len(texts) {
		return make([][]float32, len(texts))
	}
	return out
}

// storeVector persists vector stamped with the entity's UpdatedAt, so an edit racing the
// computation still marks the entity stale.
func (s *Service) storeVector(ctx context.Context, kind Kind, id int64, vector []float32, version time.Time) (bool, error) {
	if len(vector) == 0 {
		s.logger.V(1).Info("embedding unavailable, entity stays stale", "kind", kind, "id", id)
		return false, nil
	}

	var err error
	switch kind {
	case KindBacklogItem:
		err = s.repo.SaveBacklogItemEmbedding(ctx, id, vector, version)
	case KindTask:
		err = s.repo.SaveTaskEmbedding(ctx, id, vector, version)
	default:
		err = fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save %s embedding: %w", kind, err)
	}
	return true, nil
}

func (s *Service) storeDocumentationVectors(ctx context.Context, doc Documentation, title, description, content []float32) (bool, error) {
	texts := documentationTexts(doc)
	got := 0
	for i, v := range [][]float32{title, description, content} {
		if len(v) > 0 {
			got++
		} else if strings.TrimSpace(texts[i]) != "" {
			// a non-blank field without a vector means the provider failed
			s.logger.V(1).Info("embedding unavailable, documentation stays stale", "id", doc.ID)
			return false, nil
		}
	}
	if got == 0 {
		return false, nil
	}

	vectors := DocumentationVectors{Title: title, Description: description, Content: content}
	if err := s.repo.SaveDocumentationEmbeddings(ctx, doc.ID, vectors, doc.UpdatedAt); err != nil {
		return false, fmt.Errorf("failed to save documentation embeddings: %w", err)
	}
	return true, nil
}

func documentationTexts(doc Documentation) []string {
	return []string{doc.Title, doc.Description, doc.Content}
}
