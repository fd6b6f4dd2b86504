package chatcompletion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"EnPeak/internal/llm"
)

// Preset 描述一个兼容 OpenAI Chat Completions 协议的服务。
type Preset struct {
	Name    string
	BaseURL string
	Model   string
}

var (
	Mistral = Preset{Name: "mistral", BaseURL: "https://api.mistral.ai/v1", Model: "open-mixtral-8x7b"}
	Groq    = Preset{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.1-70b-versatile"}
	OpenAI  = Preset{Name: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"}
)

// Config 描述了调用 Chat Completions 接口所需的信息。
type Config struct {
	Preset  Preset
	APIKey  string
	BaseURL string
	Model   string
}

// Client 通过 HTTP 调用兼容 OpenAI 协议的 /chat/completions 接口。
// 单次调用的超时由上层 Engine 通过 context 控制。
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient 根据配置创建客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("未提供 %s API Key", cfg.Preset.Name)
	}

	name := cfg.Preset.Name
	if name == "" {
		name = OpenAI.Name
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = cfg.Preset.BaseURL
	}
	if baseURL == "" {
		baseURL = OpenAI.BaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = cfg.Preset.Model
	}
	if model == "" {
		model = OpenAI.Model
	}

	return &Client{
		name:       name,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{},
		now:        time.Now,
	}, nil
}

// Name 返回提供方名称。
func (c *Client) Name() string { return c.name }

// Model 返回模型名称。
func (c *Client) Model() string { return c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete 发送一次请求并返回首个候选的文本。
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	payload, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("序列化 %s 请求失败: %w", c.name, err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 %s 请求失败: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := &llm.StatusError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		if wait, ok := llm.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()); ok {
			statusErr.RetryAfter = wait
		}
		return nil, statusErr
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 %s 响应失败: %w", c.name, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New(c.name + " 响应中没有有效的 choices")
	}

	return &llm.Response{
		Text:     decoded.Choices[0].Message.Content,
		Provider: c.name,
		Model:    c.model,
	}, nil
}

func (c *Client) buildPayload(req llm.Request) completionRequest {
	messages := make([]message, 0, 2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: req.Prompt})
	return completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
}
