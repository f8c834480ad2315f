package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"sprintboard/src/core/backlog"
)

// Refresher recomputes one entity's embedding.
type Refresher interface {
	EnsureEmbeddingFresh(ctx context.Context, kind backlog.Kind, id int64) (bool, error)
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	topic     string
	refresher Refresher
}

type JobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// NewJobService creates a JobService. publisher may be nil in the worker, refresher may be nil in
// the API server.
func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	topic string,
	refresher Refresher,
) *JobService {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		topic:     topic,
		refresher: refresher,
	}
}

func (s *JobService) Topic() string {
	return s.topic
}

// EnqueueJob creates a new job and publishes it to the message queue
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	if s.publisher == nil {
		return nil, fmt.Errorf("job service has no publisher")
	}

	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msgPayload, err := json.Marshal(JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// ScheduleEmbeddingRefresh enqueues an embedding_refresh job for one entity.
func (s *JobService) ScheduleEmbeddingRefresh(ctx context.Context, kind backlog.Kind, id int64) error {
	payload, err := json.Marshal(EmbeddingRefreshPayload{Kind: string(kind), ID: id})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh payload: %w", err)
	}
	_, err = s.EnqueueJob(ctx, TaskTypeEmbeddingRefresh, payload)
	return err
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := msg.Context()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	err = s.processJob(ctx, job)

	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

// processJob handles different types of jobs
func (s *JobService) processJob(ctx context.Context, job *Job) error {
	switch job.TaskType {
	case TaskTypeEmbeddingRefresh:
		var payload EmbeddingRefreshPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal refresh payload: %w", err)
		}
		kind, err := backlog.ParseKind(payload.Kind)
		if err != nil {
			return err
		}
		if s.refresher == nil {
			return fmt.Errorf("no embedding refresher configured")
		}

		refreshed, err := s.refresher.EnsureEmbeddingFresh(ctx, kind, payload.ID)
		if err != nil {
			return err
		}
		s.logger.Debug("Embedding refresh executed", watermill.LogFields{
			"job_id":    job.ID,
			"kind":      payload.Kind,
			"entity_id": payload.ID,
			"refreshed": refreshed,
		})
		return nil
	default:
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}
