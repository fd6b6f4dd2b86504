package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"EnPeak/internal/community"
	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/scenario"
)

func TestTranslateMapsStatusCodes(t *testing.T) {
	if err := translate(status.Error(codes.NotFound, "missing"), "x"); !errors.Is(err, community.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := translate(status.Error(codes.Unavailable, "down"), "x"); xerrors.CodeOf(err) != xerrors.CodeStoreUnavailable {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if err := translate(fmt.Errorf("boom"), "x"); xerrors.CodeOf(err) != xerrors.CodeUnknown {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestNewCommunityStoreRequiresProject(t *testing.T) {
	if _, err := NewCommunityStore(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty project")
	}
}

// 需要 Firestore 模拟器，通过 FIRESTORE_EMULATOR_HOST 启用。
func TestCommunityStoreAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	store, err := NewCommunityStore(ctx, "enpeak-test", fmt.Sprintf("community_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	sc := &community.Scenario{
		ID:        "community_abc",
		Title:     "Bakery",
		Author:    "kim",
		Approved:  true,
		CreatedAt: time.Now().UTC(),
		Stages:    []scenario.Stage{{Ordinal: 1, OpeningLine: "Hi"}},
	}
	if err := store.Put(ctx, sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, err := store.IncrementLikes(ctx, sc.ID); err != nil || n != 1 {
		t.Fatalf("unexpected likes: %d %v", n, err)
	}
	loaded, err := store.Get(ctx, sc.ID)
	if err != nil || loaded.Likes != 1 || loaded.Stages[0].OpeningLine != "Hi" {
		t.Fatalf("unexpected scenario: %+v %v", loaded, err)
	}
	if err := store.Delete(ctx, sc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, sc.ID); !errors.Is(err, community.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
