package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	xerrors "EnPeak/internal/errors"
)

// Config 描述 Redis 连接参数。
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Client 包装 go-redis 客户端并统一 key 前缀。
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Dial 连接 Redis 并执行 PING。
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewClient(rdb, cfg.KeyPrefix), nil
}

// NewClient 使用已有的 go-redis 客户端。
func NewClient(rdb *redis.Client, prefix string) *Client {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "enpeak"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Key 拼接带前缀的 key。
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Close 关闭连接。
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func unavailable(err error, msg string) error {
	return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, msg)
}
