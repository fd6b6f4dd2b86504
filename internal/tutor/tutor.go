// Package tutor 提供自由对话练习：带历史的聊天、回复建议、表达改进、学习提示、翻译与语法反馈。
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/interpret"
	"EnPeak/internal/llm"
	"EnPeak/pkg/logger"
)

const (
	maxMessageRunes  = 2000
	maxSentenceRunes = 1000
	contextWindow    = 5

	quickTipFallback = "Keep practicing! You're doing great!"

	TargetKorean  = "ko"
	TargetEnglish = "en"
)

var (
	placeholderSuggestions = []string{"I see!", "That sounds great!", "Can you tell me more?"}
	koreanPromptMarkers    = []string{"한국어", "Korean", "한글"}
)

// ChatRequest 是一次自由对话请求。
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserLevel      string `json:"user_level,omitempty"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
}

// ChatResult 是模型回复以及附带的学习辅助信息。
type ChatResult struct {
	ConversationID    string   `json:"conversation_id"`
	Message           string   `json:"message"`
	Suggestions       []string `json:"suggestions"`
	BetterExpressions []string `json:"better_expressions"`
	GrammarFeedback   *string  `json:"grammar_feedback"`
	LearningTip       *string  `json:"learning_tip"`
}

// Service 实现自由对话练习。
type Service struct {
	client  llm.Client
	history History
	now     func() time.Time
}

// NewService 创建自由对话服务，history 为空时使用内存存储。
func NewService(client llm.Client, history History) *Service {
	if history == nil {
		history = NewMemoryHistory(DefaultHistoryLimit)
	}
	return &Service{client: client, history: history, now: time.Now}
}

// Chat 生成回复并记录历史。回复生成失败时返回错误，辅助信息生成失败只记录日志。
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if err := validateText(message, maxMessageRunes); err != nil {
		return nil, err
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	recent, err := s.history.Recent(ctx, conversationID, contextWindow)
	if err != nil {
		return nil, err
	}
	history := renderContext(recent)

	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = systemPromptTutor
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:       buildChatPrompt(req.SystemPrompt, history, message),
		SystemPrompt: systemPrompt,
		MaxTokens:    300,
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}
	reply, _ := interpret.PlainText(resp.Text)

	now := s.now()
	if err := s.history.Append(ctx, conversationID,
		Entry{Role: RoleUser, Content: message, Timestamp: now},
		Entry{Role: RoleAssistant, Content: reply, Timestamp: now},
	); err != nil {
		return nil, err
	}

	result := &ChatResult{
		ConversationID:    conversationID,
		Message:           reply,
		Suggestions:       s.suggestions(ctx, history, reply),
		BetterExpressions: s.betterExpressions(ctx, message),
	}
	if tip := s.learningTip(ctx, message); tip != "" {
		result.LearningTip = &tip
	}

	logger.L().Info("自由对话回复已生成", slog.String("conversation_id", shortened(conversationID)))
	return result, nil
}

// ClearConversation 删除对话历史，返回对话此前是否存在。
func (s *Service) ClearConversation(ctx context.Context, conversationID string) (bool, error) {
	existing, err := s.history.Recent(ctx, conversationID, 1)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}
	if err := s.history.Clear(ctx, conversationID); err != nil {
		return false, err
	}
	return true, nil
}

// Translate 在英语与韩语之间做意译，targetLang 为 ko 时译为韩语，其余译为英语。
func (s *Service) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if err := validateText(text, maxMessageRunes); err != nil {
		return "", err
	}

	template := translateToEnglishPrompt
	if targetLang == "" || targetLang == TargetKorean {
		template = translateToKoreanPrompt
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:       fmt.Sprintf(template, text),
		SystemPrompt: translatorSystemPrompt,
		MaxTokens:    200,
		Temperature:  0.4,
	})
	if err != nil {
		return "", err
	}
	translation, empty := interpret.PlainText(resp.Text)
	if empty {
		return "", xerrors.New(xerrors.CodeInferenceUpstream, "翻译结果为空")
	}
	return translation, nil
}

// Grammar 分析句子的语法问题，模型输出无法解析时返回通用鼓励。
func (s *Service) Grammar(ctx context.Context, text, situation string) (interpret.GrammarFeedback, error) {
	if err := s.ready(); err != nil {
		return interpret.GrammarFeedback{}, err
	}
	text = strings.TrimSpace(text)
	if err := validateText(text, maxSentenceRunes); err != nil {
		return interpret.GrammarFeedback{}, err
	}
	if strings.TrimSpace(situation) == "" {
		situation = "General conversation"
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(grammarFeedbackPrompt, text, situation),
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return interpret.GrammarFeedback{}, err
	}
	return interpret.Grammar(resp.Text), nil
}

// QuickTip 给出一句简短的学习提示，任何失败都返回固定提示。
func (s *Service) QuickTip(ctx context.Context, text string) string {
	if s.client == nil {
		return "Practice speaking out loud to improve your fluency!"
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(quickTipPrompt, strings.TrimSpace(text)),
		MaxTokens:   50,
		Temperature: 0.7,
	})
	if err != nil {
		logger.L().Warn("生成快速提示失败", slog.String("error", err.Error()))
		return quickTipFallback
	}
	tip, empty := interpret.PlainText(resp.Text)
	if empty {
		return quickTipFallback
	}
	return tip
}

func (s *Service) suggestions(ctx context.Context, history, reply string) []string {
	if history == "" {
		history = "This is a new conversation."
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:       fmt.Sprintf(suggestionsPrompt, history, reply),
		SystemPrompt: jsonSystemPrompt,
		MaxTokens:    150,
		Temperature:  0.7,
	})
	if err != nil {
		logger.L().Warn("生成回复建议失败", slog.String("error", err.Error()))
		return append([]string(nil), placeholderSuggestions...)
	}
	items, _ := interpret.List(resp.Text, len(placeholderSuggestions), placeholderSuggestions)
	return items
}

func (s *Service) betterExpressions(ctx context.Context, message string) []string {
	if len(strings.Fields(message)) < 3 {
		return []string{}
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:       fmt.Sprintf(betterExpressionPrompt, message),
		SystemPrompt: jsonSystemPrompt,
		MaxTokens:    100,
		Temperature:  0.7,
	})
	if err != nil {
		logger.L().Warn("生成表达建议失败", slog.String("error", err.Error()))
		return []string{}
	}
	items, _ := interpret.List(resp.Text, 2, nil)
	if items == nil {
		return []string{}
	}
	return items
}

func (s *Service) learningTip(ctx context.Context, message string) string {
	if len(strings.Fields(message)) < 3 {
		return ""
	}
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt:       fmt.Sprintf(learningTipPrompt, message),
		SystemPrompt: tipSystemPrompt,
		MaxTokens:    50,
		Temperature:  0.5,
	})
	if err != nil {
		logger.L().Warn("生成学习提示失败", slog.String("error", err.Error()))
		return ""
	}
	return interpret.Tip(resp.Text)
}

func (s *Service) ready() error {
	if s == nil || s.client == nil {
		return xerrors.New(xerrors.CodeUnavailable, "推理服务未初始化")
	}
	return nil
}

func buildChatPrompt(customSystem, history, message string) string {
	if strings.TrimSpace(customSystem) == "" {
		if history == "" {
			history = "This is the start of the conversation."
		}
		return fmt.Sprintf(freeConversationPrompt, history, message)
	}
	if isKoreanPrompt(customSystem) {
		if history == "" {
			return fmt.Sprintf("사용자: %s\n\n반드시 한국어로만 답변하세요.", message)
		}
		return fmt.Sprintf("이전 대화:\n%s\n\n사용자: %s\n\n반드시 한국어로만 답변하세요.", history, message)
	}
	if history == "" {
		return message
	}
	return fmt.Sprintf("Previous conversation:\n%s\n\nUser: %s", history, message)
}

func isKoreanPrompt(prompt string) bool {
	for _, marker := range koreanPromptMarkers {
		if strings.Contains(prompt, marker) {
			return true
		}
	}
	return false
}

func renderContext(entries []Entry) string {
	var b strings.Builder
	for _, entry := range entries {
		role := "AI"
		if entry.Role == RoleUser {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, entry.Content)
	}
	return b.String()
}

func validateText(text string, limit int) error {
	if text == "" {
		return xerrors.New(xerrors.CodeInvalidInput, "内容不能为空")
	}
	if utf8.RuneCountInString(text) > limit {
		return xerrors.New(xerrors.CodeInvalidInput, fmt.Sprintf("内容长度不能超过 %d 个字符", limit))
	}
	return nil
}

func shortened(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
