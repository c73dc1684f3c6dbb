package task

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"tasktracker/internal/model"
	"tasktracker/pkg/outbox"
)

// memStore is an in-memory TaskStore and TagStore with the same
// filtering and ordering rules as the SQL repository.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]model.Task
	tags   map[int64]model.Tag

	writes        int
	completeCalls int
	events        []*outbox.Event
	completeErr   error
}

func newMemStore() *memStore {
	return &memStore{
		tasks: make(map[int64]model.Task),
		tags:  make(map[int64]model.Tag),
	}
}

func (m *memStore) addTag(id int64, name, slug string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[id] = model.Tag{ID: id, Name: name, Slug: slug}
}

func (m *memStore) put(t model.Task) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	if t.Tags == nil {
		t.Tags = []model.Tag{}
	}
	m.tasks[t.ID] = t
	return t.ID
}

func (m *memStore) snapshot(id int64) model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

func (m *memStore) List(_ context.Context, ownerID int64, f model.TaskFilter) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(f.Query)
	out := []model.Task{}
	for _, t := range m.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
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
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	t.Tags = append([]model.Tag{}, t.Tags...)
	return &t, nil
}

func (m *memStore) Insert(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.tasks[t.ID] = *t
	m.writes++
	return nil
}

func (m *memStore) Update(_ context.Context, t *model.Task, replaceTags bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tasks[t.ID]
	if !ok || old.OwnerID != t.OwnerID {
		return model.ErrTaskNotFound
	}
	updated := *t
	updated.CompletedAt = old.CompletedAt
	if !replaceTags {
		updated.Tags = old.Tags
	}
	m.tasks[t.ID] = updated
	m.writes++
	return nil
}

func (m *memStore) Delete(_ context.Context, id, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return model.ErrTaskNotFound
	}
	delete(m.tasks, id)
	m.writes++
	return nil
}

// MarkCompleted writes only the completion columns and keeps the event,
// like the SQL version. With completeErr set nothing is written.
func (m *memStore) MarkCompleted(_ context.Context, t *model.Task, event *outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	if m.completeErr != nil {
		return m.completeErr
	}
	cur, ok := m.tasks[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return model.ErrTaskNotFound
	}
	cur.Status = t.Status
	cur.CompletedAt = t.CompletedAt
	cur.UpdatedAt = t.UpdatedAt
	m.tasks[t.ID] = cur
	m.events = append(m.events, event)
	m.writes++
	return nil
}

func (m *memStore) FindByIDs(_ context.Context, ids []int64) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tag{}
	for _, id := range ids {
		if tag, ok := m.tags[id]; ok {
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var errTxAborted = errors.New("transaction aborted")
