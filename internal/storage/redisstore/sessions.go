package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"EnPeak/internal/session"
)

// SessionStore 以 JSON 形式保存会话，每次写入都会刷新 TTL。
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore 创建 Redis 会话存储，ttl 为 0 时不过期。
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return s.client.Key("session", id)
}

// Create 实现 session.Store。
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	ok, err := s.client.rdb.SetNX(ctx, s.key(sess.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable(err, "写入 Redis 会话失败")
	}
	if !ok {
		return session.ErrConflict
	}
	return nil
}

// Get 实现 session.Store。
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	payload, err := s.client.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err, "读取 Redis 会话失败")
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("解析会话 %s 失败: %w", id, err)
	}
	return &sess, nil
}

// Update 实现 session.Store，只覆盖已存在的 key。
func (s *SessionStore) Update(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	ok, err := s.client.rdb.SetXX(ctx, s.key(sess.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable(err, "更新 Redis 会话失败")
	}
	if !ok {
		return session.ErrNotFound
	}
	return nil
}

// Delete 实现 session.Store。
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.rdb.Del(ctx, s.key(id)).Result()
	if err != nil {
		return unavailable(err, "删除 Redis 会话失败")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

var _ session.Store = (*SessionStore)(nil)
