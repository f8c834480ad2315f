package backlog

import (
	"context"
	"fmt"
	"strings"
)

type DocumentationInput struct {
	ProjectID   int64
	Title       string
	Description string
	Content     string
}

func (s *Service) CreateDocumentation(ctx context.Context, in DocumentationInput) (*Documentation, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	now := s.now()
	doc := &Documentation{
		ProjectID:   in.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDocumentation(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create documentation: %w", err)
	}

	s.scheduleRefresh(ctx, KindDocumentation, doc.ID)
	return doc, nil
}

func (s *Service) GetDocumentation(ctx context.Context, id int64) (*Documentation, error) {
	return s.repo.GetDocumentation(ctx, id)
}

func (s *Service) ListDocumentation(ctx context.Context, projectID int64, offset, limit int) ([]Documentation, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListDocumentation(ctx, projectID, offset, s.clampLimit(limit))
}
