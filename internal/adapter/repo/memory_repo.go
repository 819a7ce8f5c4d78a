package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"portraitbot/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It applies the same
// compare-and-set semantics as the PostgreSQL repository and backs tests
// and database-less local runs.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int64]domain.User)}
}

func (m *MemoryUserRepository) Ensure(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	u, ok := m.users[id]
	if !ok {
		u = domain.User{ID: id, Status: domain.StatusNew, CreatedAt: now}
	}
	u.UpdatedAt = now
	m.users[id] = u
	return &u, nil
}

func (m *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUserRepository) Transition(_ context.Context, id int64, t domain.Transition) (*domain.User, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", t.From, t.To, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Status != t.From {
		return nil, domain.Conflict("transition to "+string(t.To), u.Status)
	}
	u.Status = t.To
	switch {
	case t.ClearRefs:
		u.DatasetRef, u.ModelRef = "", ""
	default:
		if t.DatasetRef != "" {
			u.DatasetRef = t.DatasetRef
		}
		if t.ModelRef != "" {
			u.ModelRef = t.ModelRef
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return &u, nil
}

func (m *MemoryUserRepository) ResetStatus(_ context.Context, from, to domain.Status) ([]int64, error) {
	if err := (domain.Transition{From: from, To: to}).Validate(); err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, u := range m.users {
		if u.Status != from {
			continue
		}
		u.Status = to
		u.UpdatedAt = time.Now().UTC()
		m.users[id] = u
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var _ domain.UserRepository = (*MemoryUserRepository)(nil)
