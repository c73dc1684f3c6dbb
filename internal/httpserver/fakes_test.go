package httpserver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tasktracker/internal/model"
	"tasktracker/pkg/outbox"
)

type memTasks struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Task
}

func newMemTasks() *memTasks {
	return &memTasks{rows: make(map[int64]model.Task)}
}

func (m *memTasks) List(_ context.Context, ownerID int64, f model.TaskFilter) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(f.Query)
	out := []model.Task{}
	for _, t := range m.rows {
		if t.OwnerID != ownerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title+"\n"+t.Description), q) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memTasks) GetByID(_ context.Context, id int64) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memTasks) Insert(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Update(_ context.Context, t *model.Task, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Delete(_ context.Context, id, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memTasks) MarkCompleted(_ context.Context, t *model.Task, _ *outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.rows[t.ID]
	cur.Status, cur.CompletedAt, cur.UpdatedAt = t.Status, t.CompletedAt, t.UpdatedAt
	m.rows[t.ID] = cur
	return nil
}

type memTags struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Tag
}

func (m *memTags) List(_ context.Context, search string) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tag{}
	for _, t := range m.rows {
		if strings.Contains(strings.ToLower(t.Name), strings.ToLower(search)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTags) FindByIDs(_ context.Context, ids []int64) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tag{}
	for _, t := range m.rows {
		for _, id := range ids {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *memTags) Insert(_ context.Context, t *model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Slug == t.Slug || existing.Name == t.Name {
			return model.ErrTagExists
		}
	}
	m.nextID++
	t.ID = m.nextID
	m.rows = append(m.rows, *t)
	return nil
}

func (m *memTags) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.rows {
		if t.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return model.ErrTagNotFound
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[string]model.User)}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.Username]; ok {
		return model.ErrUsernameTaken
	}
	m.nextID++
	u.ID = m.nextID
	m.rows[u.Username] = *u
	return nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
