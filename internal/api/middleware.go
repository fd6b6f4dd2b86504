package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/observability/metrics"
	"EnPeak/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument 记录请求指标与访问日志，并在处理器 panic 时返回 500。
func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if v := recover(); v != nil {
				logger.L().Error("请求处理 panic", slog.String("route", route), slog.Any("panic", v))
				writeError(rec, r, xerrors.New(xerrors.CodeUnknown, ""))
			}
			elapsed := time.Since(start)
			metrics.ObserveHTTPRequest(route, r.Method, rec.status, elapsed)
			logger.L().Debug("http request",
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("duration", elapsed))
		}()
		next(rec, r)
	})
}

// limitBody 限制请求体大小。
func limitBody(maxBytes int64, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, r, xerrors.New(xerrors.CodeUnavailable, "服务已关闭"))
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
