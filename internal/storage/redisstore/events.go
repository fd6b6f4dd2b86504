package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"EnPeak/internal/report"
)

// EventPublisher 通过 Redis Pub/Sub 广播会话事件。
type EventPublisher struct {
	client  *Client
	channel string
}

// NewEventPublisher 创建事件发布器，channel 为空时使用 <prefix>:session:ended。
func NewEventPublisher(client *Client, channel string) *EventPublisher {
	if channel == "" {
		channel = client.Key("session", "ended")
	}
	return &EventPublisher{client: client, channel: channel}
}

// Publish 实现 report.Publisher。
func (p *EventPublisher) Publish(ctx context.Context, evt report.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := p.client.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("Redis 发布事件失败: %w", err)
	}
	return nil
}

// Close 实现 report.Publisher，连接由 Client 统一关闭。
func (p *EventPublisher) Close() error { return nil }

var _ report.Publisher = (*EventPublisher)(nil)
