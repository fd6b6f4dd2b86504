package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	xerrors "EnPeak/internal/errors"
	"EnPeak/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelLog     Channel = "log"
	ChannelWebhook Channel = "webhook"
)

// Event 描述一次需要告警的事件。
type Event struct {
	Code       xerrors.Code      `json:"code"`
	Message    string            `json:"message"`
	Severity   xerrors.Severity  `json:"severity"`
	Provider   string            `json:"provider,omitempty"`
	Attempts   int               `json:"attempts,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier 负责将事件发送到指定渠道。
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher 将事件广播给多个通知器。
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher 实现将事件投递到多个通知器的逻辑。
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout 创建一个新的 FanoutDispatcher。
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

// Notify 将事件广播至所有注册渠道。
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogNotifier 将告警写入应用日志与审计日志。
type LogNotifier struct{}

// Channel 返回日志渠道。
func (LogNotifier) Channel() Channel { return ChannelLog }

// Notify 记录告警。
func (LogNotifier) Notify(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("code", string(event.Code)),
		slog.String("severity", string(event.Severity)),
		slog.String("provider", event.Provider),
		slog.Int("attempts", event.Attempts),
		slog.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta."+k, v))
	}
	logger.L().Error("告警: "+event.Message, attrs...)
	logger.Audit().Warn("alert raised", attrs...)
	return nil
}

// WebhookNotifier 以 JSON 形式将告警 POST 到指定地址。
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// Channel 返回 Webhook 渠道。
func (n *WebhookNotifier) Channel() Channel { return ChannelWebhook }

// Notify 发送 Webhook 请求，非 2xx 响应视为失败。
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.URL == "" {
		logger.L().Warn("WebhookNotifier 未正确配置，跳过发送", slog.String("code", string(event.Code)))
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化告警失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构建告警请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送告警失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("告警地址返回状态 %d", resp.StatusCode)
	}
	return nil
}

// FromError 根据错误码构造告警事件。
func FromError(err error) Event {
	code := xerrors.CodeOf(err)
	event := Event{
		Code:       code,
		Message:    err.Error(),
		Severity:   xerrors.AttributesOf(code).Severity,
		OccurredAt: time.Now(),
	}
	if xe, ok := xerrors.From(err); ok {
		event.Metadata = xe.Metadata()
	}
	return event
}

// InferenceExhausted 返回推理重试耗尽时的回调，仅对需要告警的错误码发送事件。
func InferenceExhausted(d Dispatcher) func(ctx context.Context, provider string, attempts int, err error) {
	return func(ctx context.Context, provider string, attempts int, err error) {
		if d == nil || err == nil || !xerrors.ShouldAlert(err) {
			return
		}
		event := FromError(err)
		event.Provider = provider
		event.Attempts = attempts
		if notifyErr := d.Notify(context.WithoutCancel(ctx), event); notifyErr != nil {
			logger.L().Warn("发送告警失败", slog.String("error", notifyErr.Error()))
		}
	}
}

var (
	_ Notifier = LogNotifier{}
	_ Notifier = (*WebhookNotifier)(nil)
)
