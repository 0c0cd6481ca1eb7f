package template

import (
	"context"
	"sort"
	"sync"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

// MockStore implements Store in memory for unit tests and local runs.
type MockStore struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewMockStore creates an empty store.
func NewMockStore() *MockStore {
	return &MockStore{templates: make(map[string]*Template)}
}

func (m *MockStore) List(_ context.Context, page pagination.Page) ([]Template, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	out := []Template{}
	for i := page.Offset; i < len(all) && i < page.Offset+page.Limit; i++ {
		out = append(out, copyTemplate(all[i]))
	}
	return out, len(all), nil
}

func (m *MockStore) Get(_ context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyTemplate(t)
	return &c, nil
}

func (m *MockStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

func (m *MockStore) Insert(_ context.Context, templates []Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make(map[string]bool, len(m.templates))
	for _, t := range m.templates {
		names[t.Name] = true
	}
	for i := range templates {
		if names[templates[i].Name] {
			continue
		}
		c := copyTemplate(&templates[i])
		m.templates[c.ID] = &c
		names[c.Name] = true
	}
	return nil
}

// MutateData applies fn to the stored data of template id. It exists so
// tests can show that later template changes do not leak into profiles.
func (m *MockStore) MutateData(id string, fn func(map[string]any)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.templates[id]; ok {
		fn(t.Data)
	}
}

func copyTemplate(t *Template) Template {
	c := *t
	c.Data = cloneData(t.Data)
	return c
}

var _ Store = (*MockStore)(nil)
