package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"sync"
)

// Code 表示系统内的统一错误码。
type Code string

// Severity 描述错误的严重程度，用于日志与告警。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeNotFound             Code = "NOT_FOUND"
	CodeScenarioNotFound     Code = "SCENARIO_NOT_FOUND"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeModerationRejected   Code = "MODERATION_REJECTED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeInferenceTimeout     Code = "INFERENCE_TIMEOUT"
	CodeInferenceRateLimited Code = "INFERENCE_RATE_LIMITED"
	CodeInferenceUpstream    Code = "INFERENCE_UPSTREAM"
	CodeInferenceExhausted   Code = "INFERENCE_EXHAUSTED"
	CodeStoreUnavailable     Code = "STORE_UNAVAILABLE"
	CodeUnavailable          Code = "SERVICE_UNAVAILABLE"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message    string
	Severity   Severity
	Retryable  bool
	Alert      bool
	HTTPStatus int
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:              {Message: "internal error", Severity: SeverityCritical, Alert: true, HTTPStatus: http.StatusInternalServerError},
		CodeInvalidInput:         {Message: "invalid input", Severity: SeverityInfo, HTTPStatus: http.StatusBadRequest},
		CodeNotFound:             {Message: "resource not found", Severity: SeverityInfo, HTTPStatus: http.StatusNotFound},
		CodeScenarioNotFound:     {Message: "scenario not found", Severity: SeverityInfo, HTTPStatus: http.StatusNotFound},
		CodeSessionNotFound:      {Message: "session not found", Severity: SeverityInfo, HTTPStatus: http.StatusNotFound},
		CodeModerationRejected:   {Message: "content rejected", Severity: SeverityInfo, HTTPStatus: http.StatusBadRequest},
		CodeForbidden:            {Message: "operation not permitted", Severity: SeverityInfo, HTTPStatus: http.StatusForbidden},
		CodeInferenceTimeout:     {Message: "inference timed out", Severity: SeverityWarning, Retryable: true, HTTPStatus: http.StatusGatewayTimeout},
		CodeInferenceRateLimited: {Message: "inference rate limited", Severity: SeverityWarning, Retryable: true, HTTPStatus: http.StatusTooManyRequests},
		CodeInferenceUpstream:    {Message: "inference provider failure", Severity: SeverityWarning, HTTPStatus: http.StatusBadGateway},
		CodeInferenceExhausted:   {Message: "inference retries exhausted", Severity: SeverityCritical, Alert: true, HTTPStatus: http.StatusBadGateway},
		CodeStoreUnavailable:     {Message: "store unavailable", Severity: SeverityCritical, Retryable: true, Alert: true, HTTPStatus: http.StatusServiceUnavailable},
		CodeUnavailable:          {Message: "service not initialized", Severity: SeverityWarning, Retryable: true, HTTPStatus: http.StatusServiceUnavailable},
	}
)

// Register 允许业务模块在初始化阶段注册新的错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回错误信息。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// IsRetryable 判断任意 error 是否可重试。
func IsRetryable(err error) bool {
	return AttributesOf(CodeOf(err)).Retryable
}

// ShouldAlert 判断是否需要触发告警。
func ShouldAlert(err error) bool {
	return AttributesOf(CodeOf(err)).Alert
}

// HTTPStatus 将错误映射为对外的 HTTP 状态码。
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AttributesOf(CodeOf(err)).HTTPStatus
}

// PublicMessage 返回可以直接展示给调用方的错误描述。
func PublicMessage(err error) string {
	e, ok := From(err)
	if !ok {
		return AttributesOf(CodeUnknown).Message
	}
	return e.Message()
}
