package backlog

import (
	"context"
	"fmt"
	"strings"
)

type BacklogItemInput struct {
	ProjectID   int64
	SprintID    *int64
	Title       string
	Description string
	Status      string
	Priority    string
	StoryPoints int
}

// BacklogItemPatch updates the non-nil fields. ClearSprint moves the item back to the product backlog.
type BacklogItemPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	StoryPoints *int
	SprintID    *int64
	ClearSprint bool
}

func (s *Service) CreateBacklogItem(ctx context.Context, in BacklogItemInput) (*BacklogItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.StoryPoints < 0 {
		return nil, fmt.Errorf("%w: story points must not be negative", ErrInvalidInput)
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	now := s.now()
	item := &BacklogItem{
		ProjectID:   in.ProjectID,
		SprintID:    in.SprintID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Priority:    priority,
		StoryPoints: in.StoryPoints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateBacklogItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create backlog item: %w", err)
	}

	s.scheduleRefresh(ctx, KindBacklogItem, item.ID)
	return item, nil
}

func (s *Service) GetBacklogItem(ctx context.Context, id int64) (*BacklogItem, error) {
	return s.repo.GetBacklogItem(ctx, id)
}

func (s *Service) ListBacklogItems(ctx context.Context, filter ItemFilter) ([]BacklogItem, error) {
	if filter.Status != "" {
		status, err := ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Limit = s.clampLimit(filter.Limit)
	return s.repo.ListBacklogItems(ctx, filter)
}

func (s *Service) UpdateBacklogItem(ctx context.Context, id int64, patch BacklogItemPatch) (*BacklogItem, error) {
	item, err := s.repo.GetBacklogItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		item.Title = title
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if item.Status, err = ParseStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if patch.Priority != nil {
		if item.Priority, err = ParsePriority(*patch.Priority); err != nil {
			return nil, err
		}
	}
	if patch.StoryPoints != nil {
		if *patch.StoryPoints < 0 {
			return nil, fmt.Errorf("%w: story points must not be negative", ErrInvalidInput)
		}
		item.StoryPoints = *patch.StoryPoints
	}
	switch {
	case patch.ClearSprint:
		item.SprintID = nil
	case patch.SprintID != nil:
		item.SprintID = patch.SprintID
	}

	item.UpdatedAt = s.now()
	if err := s.repo.UpdateBacklogItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update backlog item: %w", err)
	}

	s.scheduleRefresh(ctx, KindBacklogItem, item.ID)
	return item, nil
}

// DeleteBacklogItem removes the item and its attachments, objects included.
func (s *Service) DeleteBacklogItem(ctx context.Context, id int64) error {
	if _, err := s.repo.GetBacklogItem(ctx, id); err != nil {
		return err
	}

	attachments, err := s.repo.ListAttachments(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	for _, a := range attachments {
		if err := s.deleteAttachment(ctx, &a); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteBacklogItem(ctx, id); err != nil {
		return fmt.Errorf("failed to delete backlog item: %w", err)
	}
	return nil
}
