package backlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrNoObjectStore = errors.New("attachment storage is not configured")

// UploadAttachment stores r under a fresh object key and records its metadata. If the metadata
// cannot be saved the object is removed again.
func (s *Service) UploadAttachment(ctx context.Context, backlogItemID int64, fileName, contentType string, size int64, r io.Reader) (*Attachment, error) {
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.repo.GetBacklogItem(ctx, backlogItemID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("backlog-items/%d/%s/%s", backlogItemID, uuid.NewString(), name)
	if err := s.objects.PutObject(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	a := &Attachment{
		BacklogItemID: backlogItemID,
		FileName:      name,
		ContentType:   contentType,
		Size:          size,
		ObjectKey:     key,
		CreatedAt:     s.now(),
	}
	if err := s.repo.CreateAttachment(ctx, a); err != nil {
		if delErr := s.objects.DeleteObject(ctx, key); delErr != nil {
			s.logger.Error(delErr, "failed to remove orphaned attachment object", "key", key)
		}
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}
	return a, nil
}

func (s *Service) ListAttachments(ctx context.Context, backlogItemID int64) ([]Attachment, error) {
	if _, err := s.repo.GetBacklogItem(ctx, backlogItemID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, backlogItemID)
}

// OpenAttachment returns the metadata and a reader over the stored bytes. The caller closes it.
func (s *Service) OpenAttachment(ctx context.Context, id int64) (*Attachment, io.ReadCloser, error) {
	if s.objects == nil {
		return nil, nil, ErrNoObjectStore
	}
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.objects.GetObject(ctx, a.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return a, rc, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, id int64) error {
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteAttachment(ctx, a)
}

func (s *Service) deleteAttachment(ctx context.Context, a *Attachment) error {
	if s.objects != nil {
		if err := s.objects.DeleteObject(ctx, a.ObjectKey); err != nil {
			return fmt.Errorf("failed to delete attachment object: %w", err)
		}
	}
	if err := s.repo.DeleteAttachment(ctx, a.ID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
