package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintboard/src/core/backlog"
)

var _ backlog.Scheduler = (*JobService)(nil)

type memJobRepo struct {
	mu      sync.Mutex
	nextID  int
	jobs    map[int]*Job
	history map[int][]JobStatus
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[int]*Job{}, history: map[int][]JobStatus{}}
}

func (r *memJobRepo) Create(_ context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	j := &Job{ID: r.nextID, TaskType: taskType, Payload: payload, Status: JobStatusPending}
	r.jobs[j.ID] = j
	r.history[j.ID] = []JobStatus{JobStatusPending}
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) Get(_ context.Context, id int) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) UpdateStatus(_ context.Context, id int, status JobStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.Status = status
	j.Error = errMsg
	if status == JobStatusRunning {
		j.Attempts++
	}
	r.history[id] = append(r.history[id], status)
	return nil
}

type refreshCall struct {
	kind backlog.Kind
	id   int64
}

type fakeRefresher struct {
	calls []refreshCall
	err   error
}

func (f *fakeRefresher) EnsureEmbeddingFresh(_ context.Context, kind backlog.Kind, id int64) (bool, error) {
	f.calls = append(f.calls, refreshCall{kind: kind, id: id})
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job message")
		return nil
	}
}

func TestScheduleEmbeddingRefresh_RoundTrip(t *testing.T) {
	ps := newPubSub(t)
	repo := newMemJobRepo()
	refresher := &fakeRefresher{}

	api := NewJobService(ps, repo, nil, "", nil)
	worker := NewJobService(nil, repo, nil, "", refresher)
	assert.Equal(t, DefaultTopic, api.Topic())

	ctx := context.Background()
	msgs, err := ps.Subscribe(ctx, api.Topic())
	require.NoError(t, err)

	require.NoError(t, api.ScheduleEmbeddingRefresh(ctx, backlog.KindTask, 42))

	msg := receive(t, msgs)
	var jm JobMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &jm))
	assert.Equal(t, TaskTypeEmbeddingRefresh, jm.TaskType)
	assert.JSONEq(t, `{"kind":"task","id":42}`, string(jm.Payload))

	require.NoError(t, worker.ProcessJobMessage(msg))

	assert.Equal(t, []refreshCall{{kind: backlog.KindTask, id: 42}}, refresher.calls)
	job, err := repo.Get(ctx, jm.JobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Nil(t, job.Error)
	assert.Equal(t, []JobStatus{JobStatusPending, JobStatusRunning, JobStatusCompleted}, repo.history[jm.JobID])
}

func TestProcessJobMessage_RefreshFailureMarksFailed(t *testing.T) {
	ps := newPubSub(t)
	repo := newMemJobRepo()
	refresher := &fakeRefresher{err: errors.New("db gone")}
	svc := NewJobService(ps, repo, nil, "refresh", refresher)

	ctx := context.Background()
	msgs, err := ps.Subscribe(ctx, "refresh")
	require.NoError(t, err)
	require.NoError(t, svc.ScheduleEmbeddingRefresh(ctx, backlog.KindBacklogItem, 7))

	msg := receive(t, msgs)
	err = svc.ProcessJobMessage(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db gone")

	job, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "db gone")
}

func TestProcessJobMessage_BadPayloads(t *testing.T) {
	repo := newMemJobRepo()
	svc := NewJobService(nil, repo, nil, "", &fakeRefresher{})
	ctx := context.Background()

	cases := []struct {
		name     string
		taskType string
		payload  string
		wantErr  string
	}{
		{"unknown task", "translate", `{}`, "unknown task type"},
		{"unknown kind", TaskTypeEmbeddingRefresh, `{"kind":"epic","id":1}`, "epic"},
		{"malformed payload", TaskTypeEmbeddingRefresh, `"oops"`, "unmarshal refresh payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := repo.Create(ctx, tc.taskType, json.RawMessage(tc.payload))
			require.NoError(t, err)
			body, err := json.Marshal(JobMessage{JobID: job.ID, TaskType: tc.taskType, Payload: job.Payload})
			require.NoError(t, err)

			err = svc.ProcessJobMessage(message.NewMessage(watermill.NewUUID(), body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)

			stored, err := repo.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, JobStatusFailed, stored.Status)
		})
	}
}

func TestProcessJobMessage_MissingJob(t *testing.T) {
	svc := NewJobService(nil, newMemJobRepo(), nil, "", &fakeRefresher{})
	body, err := json.Marshal(JobMessage{JobID: 99, TaskType: TaskTypeEmbeddingRefresh})
	require.NoError(t, err)

	err = svc.ProcessJobMessage(message.NewMessage(watermill.NewUUID(), body))
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEnqueueJob_NoPublisher(t *testing.T) {
	repo := newMemJobRepo()
	svc := NewJobService(nil, repo, nil, "", nil)

	err := svc.ScheduleEmbeddingRefresh(context.Background(), backlog.KindDocumentation, 1)
	assert.Error(t, err)
	assert.Empty(t, repo.jobs)
}
