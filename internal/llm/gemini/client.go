package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"EnPeak/internal/llm"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Config 描述 Gemini API 的连接信息。
type Config struct {
	APIKey string
	Model  string
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client 通过 google.golang.org/genai 调用 Gemini。
type Client struct {
	models generator
	model  string
}

// NewClient 创建 Gemini 客户端。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Gemini API Key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 Gemini 客户端失败: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{models: client.Models, model: model}, nil
}

// Name 返回提供方名称。
func (c *Client) Name() string { return providerName }

// Model 返回模型名称。
func (c *Client) Model() string { return c.model }

// Complete 发送一次 GenerateContent 请求。
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	res, err := c.models.GenerateContent(ctx, c.model, contents, buildConfig(req))
	if err != nil {
		return nil, translateError(err)
	}
	return &llm.Response{Text: res.Text(), Provider: providerName, Model: c.model}, nil
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	temperature := float32(req.Temperature)
	topP := float32(req.TopP)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

// translateError 将 genai 的 APIError 转为 llm.StatusError，便于 Engine 统一重试。
func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: providerName, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Provider: providerName, StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("请求 Gemini 失败: %w", err)
}
