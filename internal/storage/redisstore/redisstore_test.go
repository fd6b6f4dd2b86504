package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"EnPeak/internal/session"
	"EnPeak/internal/tutor"
)

func TestKeyUsesPrefix(t *testing.T) {
	client := NewClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), " app: ")
	defer client.Close()
	if got := client.Key("session", "abc"); got != "app:session:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := NewClient(nil, "").Key("chat", "x"); got != "enpeak:chat:x" {
		t.Fatalf("unexpected default key: %s", got)
	}
}

func TestDialRequiresAddress(t *testing.T) {
	if _, err := Dial(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}

// 需要真实 Redis，通过 ENPEAK_TEST_REDIS_ADDR 启用。
func dialTestRedis(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("ENPEAK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENPEAK_TEST_REDIS_ADDR not set")
	}
	client, err := Dial(context.Background(), Config{Addr: addr, KeyPrefix: "enpeak-test-" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("dial redis failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSessionStoreAgainstRedis(t *testing.T) {
	store := NewSessionStore(dialTestRedis(t), time.Minute)
	ctx := context.Background()
	sess := &session.Session{ID: "s1", ScenarioID: "cafe", CurrentStage: 1}

	if err := store.Update(ctx, sess); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Create(ctx, sess); !errors.Is(err, session.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	sess.CurrentStage = 2
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := store.Get(ctx, "s1")
	if err != nil || loaded.CurrentStage != 2 {
		t.Fatalf("unexpected session: %+v %v", loaded, err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestHistoryStoreTrimsAgainstRedis(t *testing.T) {
	history := NewHistoryStore(dialTestRedis(t), 3, time.Minute)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c", "d"} {
		if err := history.Append(ctx, "conv", tutor.Entry{Role: tutor.RoleUser, Content: text}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	entries, err := history.Recent(ctx, "conv", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 || entries[0].Content != "b" || entries[2].Content != "d" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := history.Clear(ctx, "conv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries, _ := history.Recent(ctx, "conv", 2); len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}
}
