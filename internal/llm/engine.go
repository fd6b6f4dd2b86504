package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/observability/metrics"
	"EnPeak/pkg/logger"
)

const (
	defaultMaxAttempts = 3
	defaultTimeout     = 60 * time.Second
	defaultRetryAfter  = 10 * time.Second
	defaultMaxWait     = 10 * time.Second
)

// ExhaustedHook 在一次调用耗尽全部重试后被触发。
type ExhaustedHook func(ctx context.Context, provider string, attempts int, err error)

// Engine 在单个 Provider 之上实现超时、限流等待与重试策略。
type Engine struct {
	provider    Provider
	maxAttempts int
	timeout     time.Duration
	retryAfter  time.Duration
	maxWait     time.Duration
	limiter     *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
	onExhausted ExhaustedHook
	tracer      trace.Tracer
}

// Option 自定义 Engine 行为。
type Option func(*Engine)

// WithMaxAttempts 设置最大尝试次数。
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithTimeout 设置单次尝试的超时时间。
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDefaultRetryAfter 设置 429 响应缺少 Retry-After 时的等待时长。
func WithDefaultRetryAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.retryAfter = d
		}
	}
}

// WithMaxRetryAfter 设置 429 等待时长的上限，Retry-After 超过上限时按上限等待。
func WithMaxRetryAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.maxWait = d
		}
	}
}

// WithRateLimit 为调用方增加每分钟请求数上限，0 表示不限制。
func WithRateLimit(perMinute int) Option {
	return func(e *Engine) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithSleep 替换等待函数，主要用于测试。
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithExhaustedHook 注册重试耗尽时的回调。
func WithExhaustedHook(hook ExhaustedHook) Option {
	return func(e *Engine) {
		e.onExhausted = hook
	}
}

// NewEngine 创建带重试策略的推理客户端。
func NewEngine(provider Provider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("未配置推理提供方")
	}
	e := &Engine{
		provider:    provider,
		maxAttempts: defaultMaxAttempts,
		timeout:     defaultTimeout,
		retryAfter:  defaultRetryAfter,
		maxWait:     defaultMaxWait,
		sleep:       sleepContext,
		tracer:      otel.Tracer("EnPeak/internal/llm"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Provider 返回当前使用的提供方名称。
func (e *Engine) Provider() string { return e.provider.Name() }

// Model 返回当前使用的模型名称。
func (e *Engine) Model() string { return e.provider.Model() }

// Generate 调用提供方生成文本，按策略重试瞬时失败。
func (e *Engine) Generate(ctx context.Context, req Request) (*Response, error) {
	req = req.WithDefaults()
	ctx, span := e.tracer.Start(ctx, "llm.Generate", trace.WithAttributes(
		attribute.String("llm.provider", e.provider.Name()),
		attribute.String("llm.model", e.provider.Model()),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	))
	defer span.End()

	log := logger.L().With(slog.String("provider", e.provider.Name()))
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, e.fail(span, canceled(ctx, err))
			}
		}

		resp, err := e.attempt(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt+1))
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, e.fail(span, canceled(ctx, ctx.Err()))
		}

		classified, retry, wait := e.classify(attempt, err)
		lastErr = classified
		if !retry {
			return nil, e.fail(span, classified)
		}
		if attempt == e.maxAttempts-1 {
			break
		}
		log.Warn("推理请求失败，准备重试",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.String("error", classified.Error()))
		if err := e.sleep(ctx, wait); err != nil {
			return nil, e.fail(span, canceled(ctx, err))
		}
	}

	exhausted := xerrors.Wrap(xerrors.CodeInferenceExhausted, lastErr,
		fmt.Sprintf("推理在 %d 次尝试后仍失败", e.maxAttempts),
		xerrors.WithMetadata("provider", e.provider.Name()))
	log.Error("推理重试次数已耗尽", slog.Int("attempts", e.maxAttempts), slog.String("error", lastErr.Error()))
	if e.onExhausted != nil {
		e.onExhausted(ctx, e.provider.Name(), e.maxAttempts, exhausted)
	}
	return nil, e.fail(span, exhausted)
}

func (e *Engine) attempt(ctx context.Context, req Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Complete(attemptCtx, req)
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(attemptCtx, err)
		if outcome == "timeout" && ctx.Err() == nil {
			err = xerrors.Wrap(xerrors.CodeInferenceTimeout, err, fmt.Sprintf("推理请求超过 %s 未完成", e.timeout))
		}
	}
	metrics.ObserveInference(e.provider.Name(), outcome, time.Since(start))
	if err != nil {
		return nil, err
	}
	if resp.Provider == "" {
		resp.Provider = e.provider.Name()
	}
	if resp.Model == "" {
		resp.Model = e.provider.Model()
	}
	return resp, nil
}

// classify 将提供方错误归类，并给出是否重试以及等待时长。
func (e *Engine) classify(attempt int, err error) (*xerrors.Error, bool, time.Duration) {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second

	if xe, ok := xerrors.From(err); ok && xe.Code() == xerrors.CodeInferenceTimeout {
		return xe, true, backoff
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusTooManyRequests:
			wait := status.RetryAfter
			if wait <= 0 {
				wait = e.retryAfter
			}
			if wait > e.maxWait {
				wait = e.maxWait
			}
			return xerrors.Wrap(xerrors.CodeInferenceRateLimited, err, "推理服务限流"), true, wait
		case status.StatusCode >= http.StatusInternalServerError, status.StatusCode == http.StatusRequestTimeout:
			return xerrors.Wrap(xerrors.CodeInferenceUpstream, err, "推理服务暂时不可用"), true, backoff
		default:
			return xerrors.Wrap(xerrors.CodeInferenceUpstream, err, "推理服务拒绝了请求"), false, 0
		}
	}
	return xerrors.Wrap(xerrors.CodeInferenceUpstream, err, "请求推理服务失败"), true, backoff
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func outcomeOf(ctx context.Context, err error) string {
	var status *StatusError
	switch {
	case errors.As(err, &status) && status.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "upstream"
	}
}

func canceled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeInferenceTimeout, err, "调用方截止时间已到")
	}
	return xerrors.Wrap(xerrors.CodeInferenceUpstream, err, "推理调用已被取消")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
