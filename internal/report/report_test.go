package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFileArchivePersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	archive, err := NewFileArchive(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := archive.Save(ctx, Report{SessionID: id, OverallScore: 70 + i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reopened, err := NewFileArchive(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, err := reopened.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(latest) != 2 || latest[0].SessionID != "c" || latest[1].SessionID != "b" {
		t.Fatalf("unexpected latest reports: %+v", latest)
	}
}

func TestFileArchiveInMemoryOnly(t *testing.T) {
	archive, err := NewFileArchive("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := archive.Save(context.Background(), Report{SessionID: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, _ := archive.Latest(context.Background(), 0)
	if len(latest) != 1 {
		t.Fatalf("expected one report, got %d", len(latest))
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{-1: 20, 0: 20, 5: 5, 100: 100, 500: 100}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNewSessionEndedCopiesReport(t *testing.T) {
	at := time.Now()
	evt := NewSessionEnded(Report{SessionID: "s", ScenarioID: "cafe", TotalTurns: 4, OverallScore: 88, CreatedAt: at})
	if evt.Type != EventSessionEnded || evt.SessionID != "s" || evt.OverallScore != 88 || !evt.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if err := (LogPublisher{}).Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
