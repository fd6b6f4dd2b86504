package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAuditLoggerRequiresPath(t *testing.T) {
	if _, err := buildAuditLogger(AuditConfig{Enabled: true}); err == nil {
		t.Fatal("expected error for empty audit path")
	}
}

func TestAuditLoggerWritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	audit, err := buildAuditLogger(AuditConfig{Enabled: true, Path: dir + "/audit/audit.log"}, DefaultMaxTextRunes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	audit.Info("session started", slog.String("session_id", "s-1"))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestClipTextTruncatesConversationText(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: clipText(5)}))
	l.Info("turn", slog.String("user_message", "안녕하세요 반가워요"), slog.String("session_id", "session-123456"))

	out := buf.String()
	if !strings.Contains(out, `"user_message":"안녕하세요..."`) {
		t.Fatalf("expected clipped message, got %s", out)
	}
	if !strings.Contains(out, `"session_id":"session-123456"`) {
		t.Fatalf("identifiers must not be clipped, got %s", out)
	}
}

func TestClipTextDisabled(t *testing.T) {
	attr := clipText(-1)(nil, slog.String("raw", strings.Repeat("x", 500)))
	if len(attr.Value.String()) != 500 {
		t.Fatalf("expected untouched value, got %d runes", len(attr.Value.String()))
	}
}

func TestSessionLoggerCarriesIdentifiers(t *testing.T) {
	if Session("s-1", "cafe_order") == nil {
		t.Fatal("expected session logger")
	}
}
