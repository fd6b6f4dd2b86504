package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesDomainMetrics(t *testing.T) {
	ObserveHTTPRequest("/api/roleplay/turn", http.MethodPost, http.StatusOK, 120*time.Millisecond)
	ObserveHTTPRequest("/api/roleplay/turn", http.MethodPost, http.StatusBadGateway, time.Second)
	ObserveInference("mistral", "ok", 800*time.Millisecond)
	ObserveDegraded("turn")
	SessionStarted("s-metrics")
	SessionEnded("s-metrics", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`enpeak_http_requests_total{code="200",handler="/api/roleplay/turn",method="POST"} 1`,
		`enpeak_http_request_errors_total{handler="/api/roleplay/turn",method="POST"} 1`,
		`enpeak_inference_attempts_total{outcome="ok",provider="mistral"} 1`,
		`enpeak_interpretation_degraded_total{shape="turn"} 1`,
		`enpeak_roleplay_sessions_ended_total{report="fallback"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q\n%s", want, text)
		}
	}
}

func TestActiveSessionsDropIdleSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := &sessionTracker{seen: make(map[string]time.Time), idle: time.Hour, now: func() time.Time { return now }}

	tracker.touch("a")
	tracker.touch("b")
	now = now.Add(40 * time.Minute)
	tracker.touch("b")
	tracker.touch("c")
	tracker.forget("c")
	if got := tracker.count(); got != 2 {
		t.Fatalf("expected 2 active sessions, got %v", got)
	}

	now = now.Add(30 * time.Minute)
	if got := tracker.count(); got != 1 {
		t.Fatalf("expected idle session to be dropped, got %v", got)
	}
	if _, ok := tracker.seen["b"]; !ok {
		t.Fatal("recently active session must stay counted")
	}
}
