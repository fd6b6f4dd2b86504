package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "enpeak.yaml", `
server:
  address: ":9090"
llm:
  provider: groq
  groq_api_key: yaml-key
scenarios:
  dir: scenarios
storage:
  sessions:
    driver: redis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.LLM.Provider != "groq" || cfg.LLM.TimeoutSeconds != 60 || cfg.LLM.MaxAttempts != 3 || cfg.LLM.DefaultRetryAfterSeconds != 10 || cfg.LLM.MaxRetryAfterSeconds != 10 {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Scenarios.Dir != filepath.Join(dir, "scenarios") {
		t.Fatalf("scenario dir should be resolved relative to config: %s", cfg.Scenarios.Dir)
	}
	if cfg.Storage.Sessions.Driver != "redis" || cfg.Storage.Community.Driver != "memory" {
		t.Fatalf("unexpected storage drivers: %+v", cfg.Storage)
	}
	if cfg.Storage.SQL.Driver != "sqlite" || cfg.Storage.SQL.DSN != filepath.Join(dir, "data", "enpeak.db") {
		t.Fatalf("unexpected sql defaults: %+v", cfg.Storage.SQL)
	}
	if cfg.Events.Driver != "log" {
		t.Fatalf("unexpected events driver: %s", cfg.Events.Driver)
	}
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "enpeak.json", `{"server":{"address":":8081"},"llm":{"mistral_api_key":"file-key"}}`)
	t.Setenv("ENPEAK_SERVER_ADDRESS", ":7070")
	t.Setenv("MISTRAL_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env override not applied: %s", cfg.Server.Address)
	}
	if cfg.LLM.MistralAPIKey != "env-key" {
		t.Fatalf("env api key not applied: %s", cfg.LLM.MistralAPIKey)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "storage:\n  sessions:\n    driver: cassandra\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}

	path = writeFile(t, dir, "firestore.yaml", "storage:\n  community:\n    driver: firestore\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected firestore project validation error")
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
