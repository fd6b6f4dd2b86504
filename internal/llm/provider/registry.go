package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"EnPeak/internal/config"
	"EnPeak/internal/llm"
	"EnPeak/internal/llm/chatcompletion"
	"EnPeak/internal/llm/gemini"
	"EnPeak/internal/llm/pythonbridge"
)

// ErrNoCredentials 表示没有任何可用的推理凭据。
var ErrNoCredentials = errors.New("未配置任何推理服务凭据")

// Select 在启动时根据配置选择唯一的推理提供方。
// 未显式指定时按 Mistral、Groq、OpenAI、Gemini、Python Bridge 的顺序取第一个有凭据的。
func Select(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = detect(cfg)
	}

	switch name {
	case "":
		return nil, ErrNoCredentials
	case chatcompletion.Mistral.Name:
		return chatcompletion.NewClient(chatcompletion.Config{Preset: chatcompletion.Mistral, APIKey: cfg.MistralAPIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case chatcompletion.Groq.Name:
		return chatcompletion.NewClient(chatcompletion.Config{Preset: chatcompletion.Groq, APIKey: cfg.GroqAPIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case chatcompletion.OpenAI.Name:
		return chatcompletion.NewClient(chatcompletion.Config{Preset: chatcompletion.OpenAI, APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.Model})
	case "python_bridge":
		script := pythonbridge.ResolveScriptPath(cfg.Python.WorkingDir, cfg.Python.ScriptPath)
		return pythonbridge.NewClient(cfg.Python.PythonExecutable, script, cfg.Python.WorkingDir, cfg.Python.Model)
	default:
		return nil, fmt.Errorf("不支持的推理提供方 %s", cfg.Provider)
	}
}

func detect(cfg config.LLMConfig) string {
	switch {
	case strings.TrimSpace(cfg.MistralAPIKey) != "":
		return chatcompletion.Mistral.Name
	case strings.TrimSpace(cfg.GroqAPIKey) != "":
		return chatcompletion.Groq.Name
	case strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		return chatcompletion.OpenAI.Name
	case strings.TrimSpace(cfg.GeminiAPIKey) != "":
		return "gemini"
	case cfg.Python.Enabled:
		return "python_bridge"
	default:
		return ""
	}
}

// NewEngine 选择提供方并套上重试策略。
func NewEngine(ctx context.Context, cfg config.LLMConfig, hook llm.ExhaustedHook) (*llm.Engine, error) {
	p, err := Select(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewEngine(p,
		llm.WithMaxAttempts(cfg.MaxAttempts),
		llm.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		llm.WithDefaultRetryAfter(time.Duration(cfg.DefaultRetryAfterSeconds)*time.Second),
		llm.WithMaxRetryAfter(time.Duration(cfg.MaxRetryAfterSeconds)*time.Second),
		llm.WithRateLimit(cfg.RateLimitPerMinute),
		llm.WithExhaustedHook(hook),
	)
}
