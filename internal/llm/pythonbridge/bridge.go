package pythonbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"EnPeak/internal/llm"
)

const providerName = "python_bridge"

// Client 通过本地 Python 脚本调用离线模型。
// 脚本从 stdin 读取一个 JSON 请求，向 stdout 写出 {"text": "..."}。
type Client struct {
	pythonExec string
	scriptPath string
	workingDir string
	model      string
}

// NewClient 创建 Python Bridge 客户端。
func NewClient(pythonExec, scriptPath, workingDir, model string) (*Client, error) {
	if scriptPath == "" {
		return nil, fmt.Errorf("未指定 Python 脚本路径")
	}
	if pythonExec == "" {
		pythonExec = "python3"
	}
	if model == "" {
		model = "local"
	}
	return &Client{
		pythonExec: pythonExec,
		scriptPath: scriptPath,
		workingDir: workingDir,
		model:      model,
	}, nil
}

// Name 返回提供方名称。
func (c *Client) Name() string { return providerName }

// Model 返回模型名称。
func (c *Client) Model() string { return c.model }

type bridgeRequest struct {
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

// Complete 调用外部脚本，并解析输出。
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	encoded, err := json.Marshal(bridgeRequest{
		Model:        c.model,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	command := exec.CommandContext(ctx, c.pythonExec, c.scriptPath)
	if c.workingDir != "" {
		command.Dir = c.workingDir
	}
	command.Stdin = bytes.NewReader(encoded)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("执行 Python 脚本失败: %v, stderr=%s", err, strings.TrimSpace(stderr.String()))
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("解析 Python 输出失败: %w", err)
	}

	return &llm.Response{Text: resp.Text, Provider: providerName, Model: c.model}, nil
}

// ResolveScriptPath 根据工作目录推导脚本绝对路径。
func ResolveScriptPath(baseDir, script string) string {
	if script == "" {
		return ""
	}
	if filepath.IsAbs(script) {
		return script
	}
	if baseDir == "" {
		return script
	}
	return filepath.Join(baseDir, script)
}
