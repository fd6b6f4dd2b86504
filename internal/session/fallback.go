package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	xerrors "EnPeak/internal/errors"
	"EnPeak/pkg/logger"
)

// FallbackStore 优先使用持久化存储，存储不可用时降级到内存。
// 降级期间写入内存的会话在后续读取时仍从内存返回；只存在于持久化存储中的会话在存储不可用时返回 STORE_UNAVAILABLE。
type FallbackStore struct {
	primary  Store
	fallback *MemoryStore

	mu       sync.Mutex
	degraded map[string]struct{}
}

// NewFallbackStore 组合持久化存储与内存降级存储。
func NewFallbackStore(primary Store, fallback *MemoryStore) *FallbackStore {
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	return &FallbackStore{primary: primary, fallback: fallback, degraded: make(map[string]struct{})}
}

// Create 实现 Store 接口。
func (f *FallbackStore) Create(ctx context.Context, s *Session) error {
	err := f.primary.Create(ctx, s)
	if !unavailable(err) {
		return err
	}
	f.warn("create", s.ID, err)
	if err := f.fallback.Create(ctx, s); err != nil {
		return err
	}
	f.mark(s.ID)
	return nil
}

// Get 实现 Store 接口。
func (f *FallbackStore) Get(ctx context.Context, id string) (*Session, error) {
	if f.isDegraded(id) {
		return f.fallback.Get(ctx, id)
	}
	s, err := f.primary.Get(ctx, id)
	if !unavailable(err) {
		return s, err
	}
	f.warn("get", id, err)
	s, fallbackErr := f.fallback.Get(ctx, id)
	if errors.Is(fallbackErr, ErrNotFound) {
		return nil, err
	}
	return s, fallbackErr
}

// Update 实现 Store 接口。
func (f *FallbackStore) Update(ctx context.Context, s *Session) error {
	if err := validate(s); err != nil {
		return err
	}
	if f.isDegraded(s.ID) {
		return f.fallback.Update(ctx, s)
	}
	err := f.primary.Update(ctx, s)
	if !unavailable(err) {
		return err
	}
	f.warn("update", s.ID, err)
	if err := f.fallback.Create(ctx, s); err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	if err := f.fallback.Update(ctx, s); err != nil {
		return err
	}
	f.mark(s.ID)
	return nil
}

// Delete 实现 Store 接口。
func (f *FallbackStore) Delete(ctx context.Context, id string) error {
	if f.isDegraded(id) {
		f.mu.Lock()
		delete(f.degraded, id)
		f.mu.Unlock()
		return f.fallback.Delete(ctx, id)
	}
	err := f.primary.Delete(ctx, id)
	if !unavailable(err) {
		return err
	}
	f.warn("delete", id, err)
	if fallbackErr := f.fallback.Delete(ctx, id); !errors.Is(fallbackErr, ErrNotFound) {
		return fallbackErr
	}
	return err
}

func (f *FallbackStore) mark(id string) {
	f.mu.Lock()
	f.degraded[id] = struct{}{}
	f.mu.Unlock()
}

func (f *FallbackStore) isDegraded(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.degraded[id]
	return ok
}

func (f *FallbackStore) warn(op, id string, err error) {
	logger.L().Warn("会话存储不可用，降级到内存",
		slog.String("op", op),
		slog.String("session_id", id),
		slog.String("error", err.Error()))
}

func unavailable(err error) bool {
	return err != nil && xerrors.CodeOf(err) == xerrors.CodeStoreUnavailable
}

var _ Store = (*FallbackStore)(nil)
