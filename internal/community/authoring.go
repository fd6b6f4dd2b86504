package community

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"EnPeak/internal/interpret"
	"EnPeak/internal/llm"
	"EnPeak/internal/moderation"
	"EnPeak/internal/scenario"
	"EnPeak/pkg/logger"
)

const (
	authoringSystemPrompt = "You are a helpful English learning assistant. Respond in Korean. Do NOT use any emojis."
	refineWindow          = 6
	finalizeWindow        = 8
)

var completeKeywords = []string{"완성", "완료", "끝", "저장", "done", "finish", "complete"}

// DraftContext 是学习者描述的场景背景。
type DraftContext struct {
	Place          string            `json:"place"`
	Time           string            `json:"time,omitempty"`
	Situation      string            `json:"situation"`
	Roles          map[string]string `json:"roles,omitempty"`
	AdditionalInfo string            `json:"additionalInfo,omitempty"`
}

// Message 是创作对话中的一条消息，Role 取 user 或 assistant。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateResult 是开始创作时的回复。
type CreateResult struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// RefineResult 是细化阶段的回复。
type RefineResult struct {
	Message       string `json:"message"`
	ScenarioReady bool   `json:"scenario_ready"`
}

// FinalizeResult 是最终生成的场景。
type FinalizeResult struct {
	Scenario *Scenario `json:"scenario"`
	Status   string    `json:"status"`
}

// Authoring 通过与模型对话帮助学习者创作场景。模型不可用时返回固定内容。
type Authoring struct {
	client llm.Client
	gate   moderation.Gate
}

// NewAuthoring 创建场景创作服务，client 可以为空。
func NewAuthoring(client llm.Client, gate moderation.Gate) *Authoring {
	return &Authoring{client: client, gate: gate}
}

// Create 审核背景信息并开始创作对话。
func (a *Authoring) Create(ctx context.Context, dc DraftContext) (*CreateResult, error) {
	if err := moderation.Require(a.gate, dc.Place, dc.Situation, dc.AdditionalInfo); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are helping create an English conversation scenario.

Context:
- Place: %s
- Time: %s
- Situation: %s
- Additional info: %s

Respond in Korean. Ask the user what specific details they want in this scenario.
Keep it brief and friendly. Suggest 2-3 possible variations they might want to try.
`, dc.Place, orText(dc.Time, "Not specified"), dc.Situation, orText(dc.AdditionalInfo, "None"))

	if text, ok := a.generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: authoringSystemPrompt,
		MaxTokens:    200,
		Temperature:  0.8,
	}); ok {
		return &CreateResult{Message: text, Status: "started"}, nil
	}

	message := fmt.Sprintf("좋아요! \"%s\"에서 \"%s\" 상황을 만들어볼게요. 어떤 구체적인 상황을 원하시나요? 예를 들어:\n\n"+
		"1. 문제가 생기는 상황 (예: 예약이 안 되어있음)\n2. 특별한 요청이 있는 상황\n3. 일상적인 대화 연습\n\n원하시는 방향을 알려주세요!",
		dc.Place, dc.Situation)
	return &CreateResult{Message: message, Status: "started"}, nil
}

// Refine 审核最新的用户消息并继续创作对话。
func (a *Authoring) Refine(ctx context.Context, dc DraftContext, messages []Message) (*RefineResult, error) {
	if err := moderation.Require(a.gate, lastUserMessage(messages)); err != nil {
		return nil, err
	}

	ready := false
	if len(messages) > 0 {
		last := strings.ToLower(messages[len(messages)-1].Content)
		for _, kw := range completeKeywords {
			if strings.Contains(last, kw) {
				ready = true
				break
			}
		}
	}

	prompt := fmt.Sprintf(`You are helping create an English conversation scenario.

Context:
- Place: %s
- Situation: %s

Conversation so far:
%s

Continue the conversation in Korean. Help the user refine their scenario.
If they seem satisfied, ask if they want to finalize the scenario.
Keep responses brief (2-3 sentences).
`, dc.Place, dc.Situation, transcript(messages, refineWindow, true))

	if text, ok := a.generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: authoringSystemPrompt,
		MaxTokens:    200,
		Temperature:  0.7,
	}); ok {
		return &RefineResult{Message: text, ScenarioReady: ready}, nil
	}
	return &RefineResult{
		Message:       "네, 알겠어요! 그 내용을 시나리오에 반영할게요. 더 추가하고 싶은 내용이 있으면 말씀해주세요. 완성하고 싶으시면 '완성'이라고 말씀해주세요!",
		ScenarioReady: ready,
	}, nil
}

// Finalize 让模型生成完整的场景 JSON，解析失败时返回三阶段的默认场景。
func (a *Authoring) Finalize(ctx context.Context, dc DraftContext, messages []Message, title string) (*FinalizeResult, error) {
	prompt := fmt.Sprintf(`Based on this conversation, create an English learning scenario.

Context:
- Place: %s
- Situation: %s

Conversation:
%s

Create a JSON scenario with this structure:
{
  "title": "English title",
  "title_ko": "한글 제목",
  "stages": [
    {
      "stage": 1,
      "name": "Stage name",
      "ai_opening": "What the AI says to start",
      "learning_tip": "A helpful tip",
      "suggested_responses": ["Possible response 1", "Possible response 2"]
    }
  ]
}

Create 3-4 stages that build a complete conversation flow.
Output ONLY valid JSON, no explanation.
`, dc.Place, dc.Situation, transcript(messages, finalizeWindow, false))

	fallback := fallbackScenario(dc, title)
	text, ok := a.generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: "Output only valid JSON.",
		MaxTokens:    800,
		Temperature:  0.7,
	})
	if !ok {
		return &FinalizeResult{Scenario: fallback, Status: "finalized"}, nil
	}
	parsed, degraded := interpret.Scenario(text, fallback.ToScenario())
	if degraded {
		logger.L().Warn("生成的场景无法使用，使用默认场景", slog.String("place", dc.Place))
		return &FinalizeResult{Scenario: fallback, Status: "finalized"}, nil
	}

	draft := &Scenario{
		ID:             fallback.ID,
		Title:          parsed.Title,
		LocalizedTitle: parsed.LocalizedTitle,
		Description:    parsed.Description,
		Place:          dc.Place,
		Situation:      dc.Situation,
		Difficulty:     DetermineDifficulty(dc.Situation, len(parsed.Stages)),
		Roles:          parsed.Roles,
		Stages:         parsed.Stages,
		KeyVocabulary:  parsed.KeyVocabulary,
		Tags:           parsed.Tags,
	}
	if draft.Tags == nil {
		draft.Tags = []string{}
	}
	return &FinalizeResult{Scenario: draft, Status: "finalized"}, nil
}

func (a *Authoring) generate(ctx context.Context, req llm.Request) (string, bool) {
	if a.client == nil {
		return "", false
	}
	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		logger.L().Warn("场景创作调用模型失败，使用默认回复", slog.String("error", err.Error()))
		return "", false
	}
	text := strings.TrimSpace(resp.Text)
	return text, text != ""
}

func fallbackScenario(dc DraftContext, title string) *Scenario {
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("%s에서 %s", dc.Place, dc.Situation)
	}
	return &Scenario{
		ID:             "custom_" + shortID(),
		Title:          title,
		LocalizedTitle: title,
		Place:          dc.Place,
		Situation:      dc.Situation,
		Difficulty:     scenario.DifficultyIntermediate,
		Tags:           []string{},
		Stages: []scenario.Stage{
			{
				Ordinal:          1,
				Name:             "Greeting",
				OpeningLine:      "Hello! How can I help you today?",
				LearningTip:      "Start with a friendly greeting",
				SuggestedReplies: []string{"Hi, I'd like to...", "Hello, could you help me with..."},
			},
			{
				Ordinal:          2,
				Name:             "Main Request",
				OpeningLine:      "Sure, I can help you with that. What would you like?",
				LearningTip:      "Be specific about what you need",
				SuggestedReplies: []string{"I would like...", "Could I have..."},
			},
			{
				Ordinal:          3,
				Name:             "Closing",
				OpeningLine:      "Is there anything else I can help you with?",
				LearningTip:      "Learn to politely end conversations",
				SuggestedReplies: []string{"That's all, thank you!", "No, that's everything."},
			},
		},
	}
}

var (
	advancedKeywords = []string{"면접", "협상", "프레젠테이션", "interview", "negotiation", "presentation", "debate"}
	beginnerKeywords = []string{"주문", "인사", "소개", "order", "greeting", "introduction", "hello"}
)

// DetermineDifficulty 根据情境关键字与阶段数量推断难度。
func DetermineDifficulty(situation string, stageCount int) string {
	lower := strings.ToLower(situation)
	for _, kw := range advancedKeywords {
		if strings.Contains(lower, kw) {
			return scenario.DifficultyAdvanced
		}
	}
	for _, kw := range beginnerKeywords {
		if strings.Contains(lower, kw) {
			return scenario.DifficultyBeginner
		}
	}
	switch {
	case stageCount <= 2:
		return scenario.DifficultyBeginner
	case stageCount >= 5:
		return scenario.DifficultyAdvanced
	default:
		return scenario.DifficultyIntermediate
	}
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func transcript(messages []Message, window int, labelled bool) string {
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := m.Role
		if labelled {
			speaker = "AI"
			if m.Role == "user" {
				speaker = "User"
			}
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func orText(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
