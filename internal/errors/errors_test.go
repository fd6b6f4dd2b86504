package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsComparesCodes(t *testing.T) {
	sentinel := New(CodeSessionNotFound, "会话不存在")
	wrapped := fmt.Errorf("advance: %w", Wrap(CodeSessionNotFound, stdErrors.New("missing row"), ""))
	if !stdErrors.Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if stdErrors.Is(wrapped, New(CodeScenarioNotFound, "")) {
		t.Fatalf("different codes must not match")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:         http.StatusBadRequest,
		CodeSessionNotFound:      http.StatusNotFound,
		CodeInferenceRateLimited: http.StatusTooManyRequests,
		CodeInferenceTimeout:     http.StatusGatewayTimeout,
		CodeInferenceExhausted:   http.StatusBadGateway,
		CodeStoreUnavailable:     http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := HTTPStatus(New(code, "")); got != want {
			t.Fatalf("code %s: expected %d, got %d", code, want, got)
		}
	}
	if got := HTTPStatus(stdErrors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("plain error should map to 500, got %d", got)
	}
}

func TestDefaultMessageAndRetryable(t *testing.T) {
	err := New(CodeInferenceTimeout, "")
	if err.Message() != "inference timed out" {
		t.Fatalf("unexpected default message: %q", err.Message())
	}
	if !IsRetryable(err) {
		t.Fatalf("timeout should be retryable")
	}
	if IsRetryable(New(CodeInvalidInput, "")) {
		t.Fatalf("invalid input should not be retryable")
	}
	if !ShouldAlert(New(CodeInferenceExhausted, "")) {
		t.Fatalf("exhausted inference should alert")
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_CUSTOM"
	Register(code, Attributes{Message: "custom", HTTPStatus: http.StatusTeapot})
	if got := HTTPStatus(New(code, "")); got != http.StatusTeapot {
		t.Fatalf("expected registered status, got %d", got)
	}
	if got := metadataValue(New(code, "", WithMetadata("k", "v")), "k"); got != "v" {
		t.Fatalf("expected metadata value, got %q", got)
	}
}

func metadataValue(err *Error, key string) string {
	return err.Metadata()[key]
}
