package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	xerrors "EnPeak/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedProvider struct {
	mu      sync.Mutex
	results []func(ctx context.Context) (*Response, error)
	calls   int
	lastReq Request
}

func (p *scriptedProvider) Name() string  { return "stub" }
func (p *scriptedProvider) Model() string { return "stub-model" }

func (p *scriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.lastReq = req
	p.mu.Unlock()
	if idx >= len(p.results) {
		return &Response{Text: "default"}, nil
	}
	return p.results[idx](ctx)
}

func ok(text string) func(context.Context) (*Response, error) {
	return func(context.Context) (*Response, error) { return &Response{Text: text}, nil }
}

func status(code int, retryAfter time.Duration) func(context.Context) (*Response, error) {
	return func(context.Context) (*Response, error) {
		return nil, &StatusError{Provider: "stub", StatusCode: code, RetryAfter: retryAfter}
	}
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestGenerateAppliesDefaultsAndFillsProvider(t *testing.T) {
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){ok("hello")}}
	engine, err := NewEngine(provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := engine.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello" || resp.Provider != "stub" || resp.Model != "stub-model" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if provider.lastReq.MaxTokens != DefaultMaxTokens || provider.lastReq.TopP != DefaultTopP || provider.lastReq.Temperature != DefaultTemperature {
		t.Fatalf("defaults not applied: %+v", provider.lastReq)
	}
}

func TestGenerateWaitsRetryAfterOn429(t *testing.T) {
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){
		status(http.StatusTooManyRequests, 3*time.Second),
		status(http.StatusTooManyRequests, 0),
		ok("finally"),
	}}
	rec := &sleepRecorder{}
	engine, _ := NewEngine(provider, WithSleep(rec.sleep))

	resp, err := engine.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "finally" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if len(rec.waits) != 2 || rec.waits[0] != 3*time.Second || rec.waits[1] != 10*time.Second {
		t.Fatalf("unexpected waits: %v", rec.waits)
	}
}

func TestGenerateCapsRetryAfterWait(t *testing.T) {
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){
		status(http.StatusTooManyRequests, 24*time.Hour),
		status(http.StatusTooManyRequests, 24*time.Hour),
		status(http.StatusTooManyRequests, 24*time.Hour),
	}}
	rec := &sleepRecorder{}
	engine, _ := NewEngine(provider, WithSleep(rec.sleep))

	if _, err := engine.Generate(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if len(rec.waits) != 2 || rec.waits[0] != 10*time.Second || rec.waits[1] != 10*time.Second {
		t.Fatalf("unexpected waits: %v", rec.waits)
	}

	provider = &scriptedProvider{results: []func(context.Context) (*Response, error){
		status(http.StatusTooManyRequests, time.Minute),
		ok("done"),
	}}
	rec = &sleepRecorder{}
	engine, _ = NewEngine(provider, WithSleep(rec.sleep), WithMaxRetryAfter(3*time.Second))
	if _, err := engine.Generate(context.Background(), Request{Prompt: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.waits) != 1 || rec.waits[0] != 3*time.Second {
		t.Fatalf("unexpected waits: %v", rec.waits)
	}
}

func TestGenerateExponentialBackoffThenExhausted(t *testing.T) {
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){
		status(http.StatusBadGateway, 0),
		func(context.Context) (*Response, error) { return nil, errors.New("connection reset") },
		status(http.StatusServiceUnavailable, 0),
	}}
	rec := &sleepRecorder{}
	var hookCalls int
	engine, _ := NewEngine(provider, WithSleep(rec.sleep), WithExhaustedHook(func(context.Context, string, int, error) {
		hookCalls++
	}))

	_, err := engine.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected last upstream cause to be preserved, got %v", err)
	}
	if xerrors.CodeOf(err) != xerrors.CodeInferenceExhausted {
		t.Fatalf("unexpected code: %s", xerrors.CodeOf(err))
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
	if len(rec.waits) != 2 || rec.waits[0] != time.Second || rec.waits[1] != 2*time.Second {
		t.Fatalf("unexpected backoff waits: %v", rec.waits)
	}
	if hookCalls != 1 {
		t.Fatalf("expected exhausted hook once, got %d", hookCalls)
	}
}

func TestGenerateClientErrorIsNotRetried(t *testing.T) {
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){
		status(http.StatusUnauthorized, 0),
	}}
	rec := &sleepRecorder{}
	engine, _ := NewEngine(provider, WithSleep(rec.sleep))

	_, err := engine.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("client errors must not be reported as exhausted")
	}
	if provider.calls != 1 || len(rec.waits) != 0 {
		t.Fatalf("expected a single attempt without waiting, calls=%d waits=%v", provider.calls, rec.waits)
	}
}

func TestGenerateAttemptTimeout(t *testing.T) {
	blocking := func(ctx context.Context) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){blocking, blocking}}
	rec := &sleepRecorder{}
	engine, _ := NewEngine(provider, WithSleep(rec.sleep), WithMaxAttempts(2), WithTimeout(20*time.Millisecond))

	_, err := engine.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout cause, got %v", err)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected exhausted wrapper, got %v", err)
	}
}

func TestGenerateCallerCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &scriptedProvider{results: []func(context.Context) (*Response, error){
		func(context.Context) (*Response, error) {
			cancel()
			return nil, context.Canceled
		},
	}}
	engine, _ := NewEngine(provider)

	_, err := engine.Generate(ctx, Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 1 {
		t.Fatalf("expected no retry after cancellation, got %d calls", provider.calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if d, ok := ParseRetryAfter("7", now); !ok || d != 7*time.Second {
		t.Fatalf("unexpected seconds parse: %v %v", d, ok)
	}
	if d, ok := ParseRetryAfter(now.Add(5*time.Second).Format(http.TimeFormat), now); !ok || d != 5*time.Second {
		t.Fatalf("unexpected date parse: %v %v", d, ok)
	}
	if _, ok := ParseRetryAfter("soon", now); ok {
		t.Fatal("expected invalid header to be rejected")
	}
	if d, ok := ParseRetryAfter("1e30", now); !ok || d <= 0 {
		t.Fatalf("huge header must not overflow: %v %v", d, ok)
	}
	if _, ok := ParseRetryAfter("", now); ok {
		t.Fatal("expected empty header to be rejected")
	}
}
