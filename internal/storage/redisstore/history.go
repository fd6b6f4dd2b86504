package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"EnPeak/internal/tutor"
)

// HistoryStore 使用 Redis list 保存自由对话历史，超出上限的旧记录会被裁剪。
type HistoryStore struct {
	client *Client
	limit  int
	ttl    time.Duration
}

// NewHistoryStore 创建对话历史存储。
func NewHistoryStore(client *Client, limit int, ttl time.Duration) *HistoryStore {
	if limit <= 0 {
		limit = tutor.DefaultHistoryLimit
	}
	return &HistoryStore{client: client, limit: limit, ttl: ttl}
}

func (h *HistoryStore) key(id string) string {
	return h.client.Key("chat", id)
}

// Append 实现 tutor.History。
func (h *HistoryStore) Append(ctx context.Context, conversationID string, entries ...tutor.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, entry := range entries {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("序列化对话记录失败: %w", err)
		}
		values = append(values, encoded)
	}

	key := h.key(conversationID)
	pipe := h.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-h.limit), -1)
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err, "写入对话历史失败")
	}
	return nil
}

// Recent 实现 tutor.History。
func (h *HistoryStore) Recent(ctx context.Context, conversationID string, n int) ([]tutor.Entry, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := h.client.rdb.LRange(ctx, h.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, unavailable(err, "读取对话历史失败")
	}
	entries := make([]tutor.Entry, 0, len(raw))
	for _, item := range raw {
		var entry tutor.Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear 实现 tutor.History。
func (h *HistoryStore) Clear(ctx context.Context, conversationID string) error {
	if err := h.client.rdb.Del(ctx, h.key(conversationID)).Err(); err != nil {
		return unavailable(err, "清空对话历史失败")
	}
	return nil
}

var _ tutor.History = (*HistoryStore)(nil)
