package tutor

import (
	"context"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultHistoryLimit 是每个对话保留的最多记录数。
	DefaultHistoryLimit = 20
)

// Entry 是自由对话中的一条记录。
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History 保存自由对话的历史记录，实现需自行裁剪到上限。
type History interface {
	Append(ctx context.Context, conversationID string, entries ...Entry) error
	// Recent 返回最近 n 条记录，n <= 0 返回全部。
	Recent(ctx context.Context, conversationID string, n int) ([]Entry, error)
	Clear(ctx context.Context, conversationID string) error
}

// MemoryHistory 在内存中保存对话历史。
type MemoryHistory struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]Entry
}

// NewMemoryHistory 创建内存历史存储，limit <= 0 时使用默认上限。
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistory{limit: limit, entries: make(map[string][]Entry)}
}

// Append 实现 History 接口。
func (m *MemoryHistory) Append(_ context.Context, conversationID string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.entries[conversationID], entries...)
	if len(list) > m.limit {
		list = append([]Entry(nil), list[len(list)-m.limit:]...)
	}
	m.entries[conversationID] = list
	return nil
}

// Recent 实现 History 接口。
func (m *MemoryHistory) Recent(_ context.Context, conversationID string, n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[conversationID]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]Entry(nil), list...), nil
}

// Clear 实现 History 接口。
func (m *MemoryHistory) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, conversationID)
	return nil
}

var _ History = (*MemoryHistory)(nil)
