package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	inferenceAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inference_attempts_total",
		Help:      "Inference attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	inferenceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Latency of a single inference attempt.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"provider"})

	interpretationDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interpretation_degraded_total",
		Help:      "Model outputs that fell back to a deterministic value.",
	}, []string{"shape"})

	sessions = &sessionTracker{seen: make(map[string]time.Time), now: time.Now}

	activeSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roleplay_active_sessions",
		Help:      "Roleplay sessions started on this instance, not ended and not idle past the session TTL.",
	}, sessions.count)

	sessionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roleplay_sessions_ended_total",
		Help:      "Ended roleplay sessions by report source.",
	}, []string{"report"})
)

// ObserveInference 记录一次推理尝试。outcome 取值如 ok、rate_limited、timeout、upstream。
func ObserveInference(provider, outcome string, duration time.Duration) {
	inferenceAttempts.WithLabelValues(provider, outcome).Inc()
	inferenceLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveDegraded 记录一次降级解析。
func ObserveDegraded(shape string) {
	interpretationDegraded.WithLabelValues(shape).Inc()
}

// sessionTracker 记录本实例上会话的最近活动时间。
// 存储按空闲 TTL 清理的会话不会触发 SessionEnded，统计时按相同的 TTL 剔除。
type sessionTracker struct {
	mu   sync.Mutex
	idle time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func (t *sessionTracker) touch(id string) {
	t.mu.Lock()
	t.seen[id] = t.now()
	t.mu.Unlock()
}

func (t *sessionTracker) forget(id string) {
	t.mu.Lock()
	delete(t.seen, id)
	t.mu.Unlock()
}

func (t *sessionTracker) count() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.idle > 0 {
		cutoff := t.now().Add(-t.idle)
		for id, last := range t.seen {
			if last.Before(cutoff) {
				delete(t.seen, id)
			}
		}
	}
	return float64(len(t.seen))
}

// SetSessionIdleTTL 设置与会话存储一致的空闲过期时间，0 表示会话只在结束时移除。
func SetSessionIdleTTL(ttl time.Duration) {
	sessions.mu.Lock()
	sessions.idle = ttl
	sessions.mu.Unlock()
}

// SessionStarted 将会话计入活跃会话。
func SessionStarted(id string) {
	sessions.touch(id)
}

// SessionActive 刷新会话的最近活动时间。
func SessionActive(id string) {
	sessions.touch(id)
}

// SessionEnded 移除活跃会话，并按报告来源计数。
func SessionEnded(id string, degradedReport bool) {
	sessions.forget(id)
	source := "model"
	if degradedReport {
		source = "fallback"
	}
	sessionsCompleted.WithLabelValues(source).Inc()
}
