package backlog

import (
	"context"
	"fmt"
	"strings"
)

type TaskInput struct {
	BacklogItemID int64
	Title         string
	Description   string
	Status        string
	Assignee      string
}

type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Assignee    *string
}

// CreateTask adds a task under a backlog item; the task inherits the item's project.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetBacklogItem(ctx, in.BacklogItemID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &Task{
		ProjectID:     item.ProjectID,
		BacklogItemID: item.ID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Status:        status,
		Assignee:      strings.TrimSpace(in.Assignee),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.scheduleRefresh(ctx, KindTask, task.ID)
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, id int64) (*Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Limit = s.clampLimit(filter.Limit)
	return s.repo.ListTasks(ctx, filter)
}

func (s *Service) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if task.Status, err = ParseStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if patch.Assignee != nil {
		task.Assignee = strings.TrimSpace(*patch.Assignee)
	}

	task.UpdatedAt = s.now()
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.scheduleRefresh(ctx, KindTask, task.ID)
	return task, nil
}
