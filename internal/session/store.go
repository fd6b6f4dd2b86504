package session

import (
	"context"
	"strings"
	"sync"
	"time"

	xerrors "EnPeak/internal/errors"
)

// Store 抽象会话的持久化接口，实现需保证按会话隔离。
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore 以内存方式保存会话，可选地按空闲时长过期。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption 自定义 MemoryStore。
type MemoryOption func(*MemoryStore)

// WithTTL 设置会话空闲过期时间，0 表示永不过期。
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock 替换时间来源，主要用于测试。
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{sessions: make(map[string]*Session), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.ID]; ok && !m.expired(existing) {
		return ErrConflict
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get 实现 Store 接口。
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Update 实现 Store 接口，只能更新已存在的会话。
func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Delete 实现 Store 接口。
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len 返回当前保存的会话数量。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(s *Session) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.now().Sub(s.UpdatedAt) > m.ttl
}

func validate(s *Session) error {
	if s == nil {
		return xerrors.New(xerrors.CodeInvalidInput, "会话不能为空")
	}
	if strings.TrimSpace(s.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidInput, "会话 ID 不能为空")
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
