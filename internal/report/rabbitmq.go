package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 描述 RabbitMQ 连接参数。
type RabbitMQConfig struct {
	URL     string
	Queue   string
	Durable bool
}

// RabbitMQPublisher 将事件投递到 RabbitMQ 队列。
type RabbitMQPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQPublisher 连接 RabbitMQ 并声明队列。
func NewRabbitMQPublisher(cfg RabbitMQConfig) (*RabbitMQPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "enpeak.session.ended"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish 实现 Publisher 接口。amqp channel 不支持并发发布，这里串行化。
func (p *RabbitMQPublisher) Publish(ctx context.Context, evt Event) error {
	if p == nil || p.ch == nil {
		return errors.New("RabbitMQ 发布器未初始化")
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         evt.Type,
		MessageId:    evt.SessionID,
		Timestamp:    evt.OccurredAt,
		Body:         body,
	})
}

// Close 关闭 RabbitMQ 连接。
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var _ Publisher = (*RabbitMQPublisher)(nil)
