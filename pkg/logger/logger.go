package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultMaxTextRunes caps learner and model text copied into log records.
const DefaultMaxTextRunes = 200

// textKeys are attribute keys that carry learner input or model output.
var textKeys = map[string]struct{}{
	"raw":          {},
	"text":         {},
	"message":      {},
	"reply":        {},
	"user_message": {},
}

// Config describes how the application logger should behave.
type Config struct {
	Level       string
	Format      string
	OutputPaths []string
	// Service is attached to every record when set.
	Service string
	// MaxTextRunes truncates conversation text attributes; negative disables truncation.
	MaxTextRunes int
	Audit        AuditConfig
}

// AuditConfig controls audit log output behaviour.
type AuditConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	defaultLogger *slog.Logger
	auditLogger   *slog.Logger
	once          sync.Once
	closers       []io.Closer
	initErr       error
)

// Init configures the global logger instances.
func Init(cfg Config) error {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		limit := cfg.MaxTextRunes
		if limit == 0 {
			limit = DefaultMaxTextRunes
		}
		handlerOpts := &slog.HandlerOptions{
			Level:       level,
			AddSource:   level == slog.LevelDebug,
			ReplaceAttr: clipText(limit),
		}

		handler, err := buildHandler(cfg.Format, cfg.OutputPaths, handlerOpts)
		if err != nil {
			initErr = err
			return
		}
		defaultLogger = withService(slog.New(handler), cfg.Service)

		auditLogger = defaultLogger
		if cfg.Audit.Enabled {
			audit, err := buildAuditLogger(cfg.Audit, limit)
			if err != nil {
				initErr = err
				return
			}
			auditLogger = withService(audit, cfg.Service)
		}
	})
	if initErr != nil {
		return initErr
	}
	if defaultLogger == nil {
		return errors.New("logger already initialised")
	}
	return nil
}

func withService(l *slog.Logger, service string) *slog.Logger {
	if service == "" {
		return l
	}
	return l.With(slog.String("service", service))
}

// clipText shortens conversation text so a long learner message or model
// reply cannot flood the log.
func clipText(limit int) func(groups []string, a slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		if limit < 0 || a.Value.Kind() != slog.KindString {
			return a
		}
		if _, ok := textKeys[a.Key]; !ok {
			return a
		}
		value := a.Value.String()
		if utf8.RuneCountInString(value) <= limit {
			return a
		}
		return slog.String(a.Key, string([]rune(value)[:limit])+"...")
	}
}

func buildHandler(format string, outputs []string, opts *slog.HandlerOptions) (slog.Handler, error) {
	writers := make([]io.Writer, 0, len(outputs))
	if len(outputs) == 0 {
		writers = append(writers, os.Stdout)
	}
	for _, out := range outputs {
		writer, err := openWriter(out)
		if err != nil {
			return nil, err
		}
		writers = append(writers, writer)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}

	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(writer, opts), nil
	}
	return slog.NewJSONHandler(writer, opts), nil
}

// rotating opens a size-rotated file, creating its directory first.
func rotating(path string, cfg AuditConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	closers = append(closers, writer)
	return writer, nil
}

func buildAuditLogger(cfg AuditConfig, maxTextRunes int) (*slog.Logger, error) {
	if cfg.Path == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 7
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 30
	}
	writer, err := rotating(cfg.Path, cfg)
	if err != nil {
		return nil, err
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo, ReplaceAttr: clipText(maxTextRunes)})
	return slog.New(handler).With(slog.String("stream", "audit")), nil
}

func openWriter(path string) (io.Writer, error) {
	switch strings.ToLower(path) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return rotating(path, AuditConfig{MaxSizeMB: 100, MaxBackups: 3})
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the structured logger instance.
func L() *slog.Logger {
	if defaultLogger == nil {
		_ = Init(Config{})
	}
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// Audit returns the audit logger.
func Audit() *slog.Logger {
	if auditLogger == nil {
		return L()
	}
	return auditLogger
}

// Session returns a logger tagged with the roleplay session and its scenario.
func Session(sessionID, scenarioID string) *slog.Logger {
	return L().With(slog.String("session_id", sessionID), slog.String("scenario_id", scenarioID))
}

// Sync flushes and closes file outputs.
func Sync() error {
	var err error
	for _, closer := range closers {
		err = errors.Join(err, closer.Close())
	}
	closers = nil
	return err
}
