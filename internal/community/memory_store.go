package community

import (
	"context"
	"sync"
)

// MemoryStore 以内存方式保存社区场景。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Scenario
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Scenario)}
}

// Put 实现 Store 接口，相同 ID 会被覆盖。
func (m *MemoryStore) Put(_ context.Context, s *Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = s.Clone()
	return nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, id string) (*Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// List 实现 Store 接口。
func (m *MemoryStore) List(_ context.Context) ([]*Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Scenario, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s.Clone())
	}
	return out, nil
}

// IncrementPlays 实现 Store 接口。
func (m *MemoryStore) IncrementPlays(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	s.Plays++
	return s.Plays, nil
}

// IncrementLikes 实现 Store 接口。
func (m *MemoryStore) IncrementLikes(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return 0, ErrNotFound
	}
	s.Likes++
	return s.Likes, nil
}

// Delete 实现 Store 接口。
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
