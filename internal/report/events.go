package report

import (
	"context"
	"log/slog"
	"time"

	"EnPeak/pkg/logger"
)

// EventSessionEnded 是会话结束事件的类型名。
const EventSessionEnded = "session.ended"

// Event 描述一次会话结束，供下游统计或推送使用。
type Event struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id"`
	ScenarioID   string    `json:"scenario_id"`
	TotalTurns   int       `json:"total_turns"`
	Completed    bool      `json:"completed"`
	OverallScore int       `json:"overall_score"`
	Degraded     bool      `json:"degraded"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewSessionEnded 根据报告构造结束事件。
func NewSessionEnded(r Report) Event {
	return Event{
		Type:         EventSessionEnded,
		SessionID:    r.SessionID,
		ScenarioID:   r.ScenarioID,
		TotalTurns:   r.TotalTurns,
		Completed:    r.Completed,
		OverallScore: r.OverallScore,
		Degraded:     r.Degraded,
		OccurredAt:   r.CreatedAt,
	}
}

// Publisher 负责投递事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// LogPublisher 将事件写入审计日志，不依赖外部组件。
type LogPublisher struct{}

// Publish 实现 Publisher 接口。
func (LogPublisher) Publish(_ context.Context, evt Event) error {
	logger.Audit().Info("session event",
		slog.String("type", evt.Type),
		slog.String("session_id", evt.SessionID),
		slog.String("scenario_id", evt.ScenarioID),
		slog.Int("total_turns", evt.TotalTurns),
		slog.Int("overall_score", evt.OverallScore),
		slog.Bool("degraded", evt.Degraded))
	return nil
}

// Close 实现 Publisher 接口。
func (LogPublisher) Close() error { return nil }

var _ Publisher = LogPublisher{}
