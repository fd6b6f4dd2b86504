package provider

import (
	"context"
	"errors"
	"testing"

	"EnPeak/internal/config"
)

func TestSelectPrefersMistralThenGroq(t *testing.T) {
	p, err := Select(context.Background(), config.LLMConfig{MistralAPIKey: "m", GroqAPIKey: "g"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "mistral" || p.Model() != "open-mixtral-8x7b" {
		t.Fatalf("unexpected provider: %s/%s", p.Name(), p.Model())
	}

	p, err = Select(context.Background(), config.LLMConfig{GroqAPIKey: "g"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "groq" {
		t.Fatalf("expected groq fallback, got %s", p.Name())
	}
}

func TestSelectExplicitProviderAndModel(t *testing.T) {
	p, err := Select(context.Background(), config.LLMConfig{Provider: "OpenAI", OpenAIAPIKey: "o", MistralAPIKey: "m", Model: "gpt-4.1-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" || p.Model() != "gpt-4.1-mini" {
		t.Fatalf("unexpected provider: %s/%s", p.Name(), p.Model())
	}
}

func TestSelectWithoutCredentials(t *testing.T) {
	if _, err := Select(context.Background(), config.LLMConfig{}); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
	if _, err := Select(context.Background(), config.LLMConfig{Provider: "mistral"}); err == nil {
		t.Fatal("expected error when explicit provider lacks a key")
	}
	if _, err := Select(context.Background(), config.LLMConfig{Provider: "unknown-vendor"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewEngineUsesPythonBridge(t *testing.T) {
	engine, err := NewEngine(context.Background(), config.LLMConfig{
		Python: config.PythonBridgeConfig{Enabled: true, ScriptPath: "bridge.py", WorkingDir: "/srv", PythonExecutable: "python3"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Provider() != "python_bridge" {
		t.Fatalf("unexpected provider: %s", engine.Provider())
	}
}
