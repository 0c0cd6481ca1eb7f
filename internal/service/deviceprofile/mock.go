package deviceprofile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

// MockStore implements Repository in memory with the same rules as the
// Postgres store: owner scoping, live-only case-insensitive names and
// conditional updates. Deleted rows are kept.
type MockStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMockStore creates an empty store.
func NewMockStore() *MockStore {
	return &MockStore{profiles: make(map[string]*Profile)}
}

func (m *MockStore) Insert(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; exists {
		return fmt.Errorf("inserting device profile: id %s already exists", p.ID)
	}
	if m.nameTakenLocked(p.OwnerID, p.Name, "") {
		return ErrNameConflict
	}
	m.profiles[p.ID] = cloneProfile(p)
	return nil
}

func (m *MockStore) Get(_ context.Context, owner, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.live(owner, id)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(p), nil
}

func (m *MockStore) List(_ context.Context, owner string, page pagination.Page) ([]Profile, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Profile, 0)
	for _, p := range m.profiles {
		if p.OwnerID == owner && p.DeletedAt == nil {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})

	out := []Profile{}
	for i := page.Offset; i < len(all) && i < page.Offset+page.Limit; i++ {
		out = append(out, *cloneProfile(all[i]))
	}
	return out, len(all), nil
}

func (m *MockStore) NameTaken(_ context.Context, owner, name, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nameTakenLocked(owner, name, excludeID), nil
}

func (m *MockStore) UpdateIfVersion(_ context.Context, p *Profile, expected int) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.live(p.OwnerID, p.ID)
	if !ok || current.Version != expected {
		return nil, errStaleVersion
	}
	if m.nameTakenLocked(p.OwnerID, p.Name, p.ID) {
		return nil, ErrNameConflict
	}
	next := cloneProfile(p)
	next.Version = expected + 1
	next.CreatedAt = current.CreatedAt
	m.profiles[p.ID] = next
	return cloneProfile(next), nil
}

func (m *MockStore) SoftDelete(_ context.Context, owner, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.live(owner, id)
	if !ok {
		return ErrNotFound
	}
	deleted := at
	p.DeletedAt = &deleted
	p.UpdatedAt = at
	p.Version++
	return nil
}

func (m *MockStore) live(owner, id string) (*Profile, bool) {
	p, ok := m.profiles[id]
	if !ok || p.OwnerID != owner || p.DeletedAt != nil {
		return nil, false
	}
	return p, true
}

func (m *MockStore) nameTakenLocked(owner, name, excludeID string) bool {
	for _, p := range m.profiles {
		if p.OwnerID == owner && p.DeletedAt == nil && p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

var _ Repository = (*MockStore)(nil)
