package backlog_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"sprintboard/src/core/backlog"
	"sprintboard/src/core/search"
)

type memRepo struct {
	mu          sync.Mutex
	nextID      int64
	projects    map[int64]backlog.Project
	items       map[int64]backlog.BacklogItem
	tasks       map[int64]backlog.Task
	docs        map[int64]backlog.Documentation
	attachments map[int64]backlog.Attachment

	candidateCalls []backlog.CandidateFilter
	failAttachment bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		projects:    map[int64]backlog.Project{},
		items:       map[int64]backlog.BacklogItem{},
		tasks:       map[int64]backlog.Task{},
		docs:        map[int64]backlog.Documentation{},
		attachments: map[int64]backlog.Attachment{},
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) Ping(context.Context) error { return nil }

func (r *memRepo) CreateProject(_ context.Context, p *backlog.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.projects[p.ID] = *p
	return nil
}

func (r *memRepo) GetProject(_ context.Context, id int64) (*backlog.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, backlog.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) ListProjects(_ context.Context, offset, limit int) ([]backlog.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Project
	for _, id := range sortedKeys(r.projects) {
		out = append(out, r.projects[id])
	}
	return page(out, offset, limit), nil
}

func (r *memRepo) CreateBacklogItem(_ context.Context, item *backlog.BacklogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = r.id()
	r.items[item.ID] = *item
	return nil
}

func (r *memRepo) GetBacklogItem(_ context.Context, id int64) (*backlog.BacklogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, backlog.ErrNotFound
	}
	return &item, nil
}

func (r *memRepo) ListBacklogItems(_ context.Context, f backlog.ItemFilter) ([]backlog.BacklogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.BacklogItem
	for _, id := range sortedKeys(r.items) {
		item := r.items[id]
		if f.ProjectID != 0 && item.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.SprintID != nil && (item.SprintID == nil || *item.SprintID != *f.SprintID) {
			continue
		}
		out = append(out, item)
	}
	return page(out, f.Offset, f.Limit), nil
}

func (r *memRepo) UpdateBacklogItem(_ context.Context, item *backlog.BacklogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return backlog.ErrNotFound
	}
	r.items[item.ID] = *item
	return nil
}

func (r *memRepo) DeleteBacklogItem(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memRepo) SaveBacklogItemEmbedding(_ context.Context, id int64, vector []float32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return backlog.ErrNotFound
	}
	item.Vector = vector
	item.EmbeddingUpdatedAt = &at
	r.items[id] = item
	return nil
}

func (r *memRepo) StaleBacklogItems(_ context.Context, afterID int64, limit int) ([]backlog.BacklogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.BacklogItem
	for _, id := range sortedKeys(r.items) {
		if id > afterID && r.items[id].NeedsEmbeddingUpdate() {
			out = append(out, r.items[id])
		}
	}
	return page(out, 0, limit), nil
}

func (r *memRepo) BacklogCandidates(_ context.Context, f backlog.CandidateFilter) ([]backlog.BacklogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidateCalls = append(r.candidateCalls, f)
	var out []backlog.BacklogItem
	for _, id := range sortedKeys(r.items) {
		item := r.items[id]
		if item.ProjectID != f.ProjectID {
			continue
		}
		if f.SprintID != nil && (item.SprintID == nil || *item.SprintID != *f.SprintID) {
			continue
		}
		if !candidateMatches(f, item.ID, item.Title+" "+item.Description, item.Vector) {
			continue
		}
		out = append(out, item)
	}
	return page(out, 0, f.Limit), nil
}

func (r *memRepo) CreateTask(_ context.Context, task *backlog.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = r.id()
	r.tasks[task.ID] = *task
	return nil
}

func (r *memRepo) GetTask(_ context.Context, id int64) (*backlog.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, backlog.ErrNotFound
	}
	return &task, nil
}

func (r *memRepo) ListTasks(_ context.Context, f backlog.TaskFilter) ([]backlog.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Task
	for _, id := range sortedKeys(r.tasks) {
		task := r.tasks[id]
		if f.ProjectID != 0 && task.ProjectID != f.ProjectID {
			continue
		}
		if f.BacklogItemID != 0 && task.BacklogItemID != f.BacklogItemID {
			continue
		}
		out = append(out, task)
	}
	return page(out, f.Offset, f.Limit), nil
}

func (r *memRepo) UpdateTask(_ context.Context, task *backlog.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	return nil
}

func (r *memRepo) SaveTaskEmbedding(_ context.Context, id int64, vector []float32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := r.tasks[id]
	task.Vector = vector
	task.EmbeddingUpdatedAt = &at
	r.tasks[id] = task
	return nil
}

func (r *memRepo) StaleTasks(_ context.Context, afterID int64, limit int) ([]backlog.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Task
	for _, id := range sortedKeys(r.tasks) {
		if id > afterID && r.tasks[id].NeedsEmbeddingUpdate() {
			out = append(out, r.tasks[id])
		}
	}
	return page(out, 0, limit), nil
}

func (r *memRepo) TaskCandidates(_ context.Context, f backlog.CandidateFilter) ([]backlog.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidateCalls = append(r.candidateCalls, f)
	var out []backlog.Task
	for _, id := range sortedKeys(r.tasks) {
		task := r.tasks[id]
		if task.ProjectID != f.ProjectID {
			continue
		}
		if f.BacklogItemID != 0 && task.BacklogItemID != f.BacklogItemID {
			continue
		}
		if !candidateMatches(f, task.ID, task.Title+" "+task.Description, task.Vector) {
			continue
		}
		out = append(out, task)
	}
	return page(out, 0, f.Limit), nil
}

func (r *memRepo) CreateDocumentation(_ context.Context, doc *backlog.Documentation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.ID = r.id()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRepo) GetDocumentation(_ context.Context, id int64) (*backlog.Documentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, backlog.ErrNotFound
	}
	return &doc, nil
}

func (r *memRepo) ListDocumentation(_ context.Context, projectID int64, offset, limit int) ([]backlog.Documentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Documentation
	for _, id := range sortedKeys(r.docs) {
		if r.docs[id].ProjectID == projectID {
			out = append(out, r.docs[id])
		}
	}
	return page(out, offset, limit), nil
}

func (r *memRepo) SaveDocumentationEmbeddings(_ context.Context, id int64, v backlog.DocumentationVectors, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.docs[id]
	if v.Title != nil {
		doc.TitleVector = v.Title
	}
	if v.Description != nil {
		doc.DescriptionVector = v.Description
	}
	if v.Content != nil {
		doc.ContentVector = v.Content
	}
	doc.EmbeddingUpdatedAt = &at
	r.docs[id] = doc
	return nil
}

func (r *memRepo) StaleDocumentation(_ context.Context, afterID int64, limit int) ([]backlog.Documentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Documentation
	for _, id := range sortedKeys(r.docs) {
		if id > afterID && r.docs[id].NeedsEmbeddingUpdate() {
			out = append(out, r.docs[id])
		}
	}
	return page(out, 0, limit), nil
}

func (r *memRepo) DocumentationCandidates(_ context.Context, f backlog.CandidateFilter) ([]backlog.Documentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidateCalls = append(r.candidateCalls, f)
	var out []backlog.Documentation
	for _, id := range sortedKeys(r.docs) {
		doc := r.docs[id]
		if doc.ProjectID != f.ProjectID {
			continue
		}
		if !candidateMatches(f, doc.ID, doc.FieldText(f.Field), doc.FieldEmbedding(f.Field)) {
			continue
		}
		out = append(out, doc)
	}
	return page(out, 0, f.Limit), nil
}

func (r *memRepo) CreateAttachment(_ context.Context, a *backlog.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAttachment {
		return errors.New("insert failed")
	}
	a.ID = r.id()
	r.attachments[a.ID] = *a
	return nil
}

func (r *memRepo) GetAttachment(_ context.Context, id int64) (*backlog.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attachments[id]
	if !ok {
		return nil, backlog.ErrNotFound
	}
	return &a, nil
}

func (r *memRepo) ListAttachments(_ context.Context, backlogItemID int64) ([]backlog.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []backlog.Attachment
	for _, id := range sortedKeys(r.attachments) {
		if r.attachments[id].BacklogItemID == backlogItemID {
			out = append(out, r.attachments[id])
		}
	}
	return out, nil
}

func (r *memRepo) DeleteAttachment(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attachments, id)
	return nil
}

func candidateMatches(f backlog.CandidateFilter, id int64, text string, vector []float32) bool {
	for _, ex := range f.ExcludeIDs {
		if ex == id {
			return false
		}
	}
	if f.WithEmbedding && len(vector) == 0 {
		return false
	}
	if len(f.Terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, term := range f.Terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	// fallback is returned for texts without an explicit vector; nil means "unavailable".
	fallback []float32
	calls    int
	batches  [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.lookup(text)
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) [][]float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			out[i] = f.lookup(t)
		}
	}
	return out
}

func (f *fakeEmbedder) lookup(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return f.fallback
}

type recordingScheduler struct {
	mu    sync.Mutex
	err   error
	kinds []backlog.Kind
	ids   []int64
}

func (s *recordingScheduler) ScheduleEmbeddingRefresh(_ context.Context, kind backlog.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	s.ids = append(s.ids, id)
	return s.err
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

var _ search.Embedder = (*fakeEmbedder)(nil)
