package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	xerrors "EnPeak/internal/errors"
	"EnPeak/pkg/logger"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    xerrors.Code `json:"code"`
	Message string       `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L().Warn("写入响应失败", slog.String("error", err.Error()))
	}
}

// writeError 按错误码映射状态码，未登记的错误统一返回 500 且不暴露细节。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := xerrors.HTTPStatus(err)
	code := xerrors.CodeOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("请求处理失败",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("code", string(code)),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: xerrors.PublicMessage(err)}})
}

// decodeJSON 解析请求体，请求体过大或格式错误都视为无效输入。
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return xerrors.Wrap(xerrors.CodeInvalidInput, err, "请求体过大")
		case errors.Is(err, io.EOF):
			return xerrors.New(xerrors.CodeInvalidInput, "请求体不能为空")
		default:
			return xerrors.Wrap(xerrors.CodeInvalidInput, err, "请求体解析失败")
		}
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func required(value, field string) error {
	if value == "" {
		return xerrors.New(xerrors.CodeInvalidInput, field+" 不能为空")
	}
	return nil
}

func unavailable(component string) error {
	return xerrors.New(xerrors.CodeUnavailable, component+" 未初始化")
}
