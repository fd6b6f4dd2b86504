package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	xerrors "EnPeak/internal/errors"
)

const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
)

// Request 描述一次文本生成调用。多轮上下文由调用方拼接进 Prompt。
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	TopP         float64
}

// WithDefaults 为零值字段填充默认采样参数。
func (r Request) WithDefaults() Request {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
	if r.TopP <= 0 || r.TopP > 1 {
		r.TopP = DefaultTopP
	}
	return r
}

// Response 是模型返回的原始文本以及实际使用的提供方与模型。
type Response struct {
	Text     string
	Provider string
	Model    string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Provider 完成一次不带重试的请求。
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

var (
	ErrTimeout     = xerrors.New(xerrors.CodeInferenceTimeout, "推理请求超时")
	ErrRateLimited = xerrors.New(xerrors.CodeInferenceRateLimited, "推理服务限流")
	ErrUpstream    = xerrors.New(xerrors.CodeInferenceUpstream, "推理服务返回错误")
	ErrExhausted   = xerrors.New(xerrors.CodeInferenceExhausted, "推理重试次数已耗尽")
)

// StatusError 表示提供方返回了非 2xx 状态码。
type StatusError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s 返回错误状态 %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ParseRetryAfter 解析 Retry-After 头，支持秒数与 HTTP 日期两种格式。
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs >= math.MaxInt64/float64(time.Second) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}
