package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/interpret"
	"EnPeak/internal/llm"
)

// routedClient 按提示词内容返回不同的文本。
type routedClient struct {
	mu     sync.Mutex
	routes map[string]string
	fail   map[string]error
	reqs   []llm.Request
}

func (c *routedClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	for marker, err := range c.fail {
		if strings.Contains(req.Prompt, marker) {
			return nil, err
		}
	}
	for marker, text := range c.routes {
		if strings.Contains(req.Prompt, marker) {
			return &llm.Response{Text: text}, nil
		}
	}
	return &llm.Response{Text: "Nice to meet you! What do you like to do?"}, nil
}

func (c *routedClient) first(marker string) (llm.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range c.reqs {
		if strings.Contains(req.Prompt, marker) {
			return req, true
		}
	}
	return llm.Request{}, false
}

func TestChatAssignsConversationAndRecordsHistory(t *testing.T) {
	client := &routedClient{routes: map[string]string{
		"suggest 3 natural responses": `["I like hiking.", "I enjoy reading.", "What about you?"]`,
		"more natural or native-like": "```json\n[\"I'm really into hiking.\", \"Hiking is my thing.\", \"extra\"]\n```",
		"brief learning tip":          "null",
	}}
	history := NewMemoryHistory(0)
	svc := NewService(client, history)

	result, err := svc.Chat(context.Background(), ChatRequest{Message: "I like go to hiking"})
	require.NoError(t, err)
	require.NotEmpty(t, result.ConversationID)
	require.Equal(t, "Nice to meet you! What do you like to do?", result.Message)
	require.Equal(t, []string{"I like hiking.", "I enjoy reading.", "What about you?"}, result.Suggestions)
	require.Equal(t, []string{"I'm really into hiking.", "Hiking is my thing."}, result.BetterExpressions)
	require.Nil(t, result.LearningTip)
	require.Nil(t, result.GrammarFeedback)

	entries, err := history.Recent(context.Background(), result.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, RoleUser, entries[0].Role)
	require.Equal(t, RoleAssistant, entries[1].Role)

	req, ok := client.first("casual English conversation")
	require.True(t, ok)
	require.Contains(t, req.Prompt, "This is the start of the conversation.")
	require.Equal(t, 300, req.MaxTokens)
	require.Equal(t, 0.8, req.Temperature)
	require.Equal(t, systemPromptTutor, req.SystemPrompt)
}

func TestChatUsesRecentContext(t *testing.T) {
	client := &routedClient{}
	svc := NewService(client, nil)
	ctx := context.Background()

	first, err := svc.Chat(ctx, ChatRequest{Message: "Hello"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, ChatRequest{Message: "Tell me a story", ConversationID: first.ConversationID})
	require.NoError(t, err)

	req, ok := client.first("User said: \"Tell me a story\"")
	require.True(t, ok)
	require.Contains(t, req.Prompt, "User: Hello\nAI: Nice to meet you!")
}

func TestChatKoreanSystemPrompt(t *testing.T) {
	client := &routedClient{}
	svc := NewService(client, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "안녕", SystemPrompt: "한국어로 시나리오 설정을 도와주세요."})
	require.NoError(t, err)
	req, ok := client.first("사용자: 안녕")
	require.True(t, ok)
	require.True(t, strings.HasSuffix(req.Prompt, "반드시 한국어로만 답변하세요."))
	require.Equal(t, "한국어로 시나리오 설정을 도와주세요.", req.SystemPrompt)
}

func TestChatShortMessageSkipsExtras(t *testing.T) {
	client := &routedClient{fail: map[string]error{"suggest 3 natural responses": errors.New("boom")}}
	svc := NewService(client, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{Message: "Hi there"})
	require.NoError(t, err)
	require.Equal(t, placeholderSuggestions, result.Suggestions)
	require.Empty(t, result.BetterExpressions)
	require.Nil(t, result.LearningTip)
	_, asked := client.first("more natural or native-like")
	require.False(t, asked)
}

func TestChatLearningTip(t *testing.T) {
	client := &routedClient{routes: map[string]string{"brief learning tip": "\"go to hiking 대신 go hiking이 자연스러워요.\""}}
	svc := NewService(client, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{Message: "I want go to hiking"})
	require.NoError(t, err)
	require.NotNil(t, result.LearningTip)
	require.Equal(t, "go to hiking 대신 go hiking이 자연스러워요.", *result.LearningTip)
}

func TestChatNormalizesReplyText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"blank", "   ", interpret.FallbackReply},
		{"quoted", "\"Nice to meet you!\"", "Nice to meet you!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &routedClient{routes: map[string]string{"casual English conversation": tc.raw}}
			history := NewMemoryHistory(0)
			svc := NewService(client, history)

			result, err := svc.Chat(context.Background(), ChatRequest{Message: "Hi", ConversationID: "c1"})
			require.NoError(t, err)
			require.Equal(t, tc.want, result.Message)

			entries, err := history.Recent(context.Background(), "c1", 0)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, tc.want, entries[1].Content)
		})
	}
}

func TestChatValidation(t *testing.T) {
	svc := NewService(&routedClient{}, nil)
	_, err := svc.Chat(context.Background(), ChatRequest{Message: "   "})
	require.Equal(t, xerrors.CodeInvalidInput, xerrors.CodeOf(err))

	_, err = svc.Chat(context.Background(), ChatRequest{Message: strings.Repeat("a", maxMessageRunes+1)})
	require.Equal(t, xerrors.CodeInvalidInput, xerrors.CodeOf(err))

	_, err = NewService(nil, nil).Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Equal(t, xerrors.CodeUnavailable, xerrors.CodeOf(err))
}

func TestChatReplyFailureLeavesHistory(t *testing.T) {
	client := &routedClient{fail: map[string]error{"casual English conversation": llm.ErrExhausted}}
	history := NewMemoryHistory(0)
	svc := NewService(client, history)

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "Hello", ConversationID: "c1"})
	require.ErrorIs(t, err, llm.ErrExhausted)
	entries, _ := history.Recent(context.Background(), "c1", 0)
	require.Empty(t, entries)
}

func TestClearConversation(t *testing.T) {
	svc := NewService(&routedClient{}, nil)
	ctx := context.Background()
	result, err := svc.Chat(ctx, ChatRequest{Message: "Hello"})
	require.NoError(t, err)

	cleared, err := svc.ClearConversation(ctx, result.ConversationID)
	require.NoError(t, err)
	require.True(t, cleared)

	cleared, err = svc.ClearConversation(ctx, result.ConversationID)
	require.NoError(t, err)
	require.False(t, cleared)
}

func TestTranslateDirection(t *testing.T) {
	client := &routedClient{routes: map[string]string{
		"to natural, conversational Korean":  "  안녕하세요  ",
		"to natural, conversational English": "Hello",
	}}
	svc := NewService(client, nil)

	ko, err := svc.Translate(context.Background(), "Hello", "")
	require.NoError(t, err)
	require.Equal(t, "안녕하세요", ko)

	en, err := svc.Translate(context.Background(), "안녕하세요", TargetEnglish)
	require.NoError(t, err)
	require.Equal(t, "Hello", en)

	req, _ := client.first("to natural, conversational Korean")
	require.Equal(t, 0.4, req.Temperature)
	require.Equal(t, 200, req.MaxTokens)
	require.Equal(t, translatorSystemPrompt, req.SystemPrompt)
}

func TestTranslateDequotesAndRejectsBlank(t *testing.T) {
	quoted := NewService(&routedClient{routes: map[string]string{"to natural, conversational Korean": "“안녕하세요”"}}, nil)
	ko, err := quoted.Translate(context.Background(), "Hello", TargetKorean)
	require.NoError(t, err)
	require.Equal(t, "안녕하세요", ko)

	blank := NewService(&routedClient{routes: map[string]string{"to natural, conversational Korean": "  "}}, nil)
	_, err = blank.Translate(context.Background(), "Hello", TargetKorean)
	require.Equal(t, xerrors.CodeInferenceUpstream, xerrors.CodeOf(err))
}

func TestGrammarFeedback(t *testing.T) {
	client := &routedClient{routes: map[string]string{
		"I goes": `{"is_correct": false, "corrected_sentence": "I go to school.", "errors": [{"original": "goes", "correction": "go", "explanation": "주어가 I일 때는 go"}], "encouragement": "좋아요!"}`,
	}}
	svc := NewService(client, nil)

	feedback, err := svc.Grammar(context.Background(), "I goes to school.", "")
	require.NoError(t, err)
	require.False(t, feedback.IsCorrect)
	require.Equal(t, "I go to school.", feedback.CorrectedText)
	require.Len(t, feedback.Errors, 1)
	require.Equal(t, "grammar", feedback.Errors[0].Type)

	req, _ := client.first("I goes")
	require.Contains(t, req.Prompt, "Context: General conversation")
	require.Equal(t, 0.3, req.Temperature)

	fallback, err := svc.Grammar(context.Background(), "Whatever you say.", "chat")
	require.NoError(t, err)
	require.True(t, fallback.IsCorrect)
	require.Equal(t, "Keep practicing! 계속 연습하세요!", fallback.Encouragement)
}

func TestQuickTipFallbacks(t *testing.T) {
	require.Equal(t, "Practice speaking out loud to improve your fluency!", NewService(nil, nil).QuickTip(context.Background(), "hi"))
	failing := &routedClient{fail: map[string]error{"ONE short": errors.New("down")}}
	require.Equal(t, "Keep practicing! You're doing great!", NewService(failing, nil).QuickTip(context.Background(), "hi"))
	blank := &routedClient{routes: map[string]string{"ONE short": " \n "}}
	require.Equal(t, "Keep practicing! You're doing great!", NewService(blank, nil).QuickTip(context.Background(), "hi"))
	quoted := &routedClient{routes: map[string]string{"ONE short": "'Say \"I'd like\" instead of \"I want\".'"}}
	require.Equal(t, `Say "I'd like" instead of "I want".`, NewService(quoted, nil).QuickTip(context.Background(), "hi"))
}

func TestMemoryHistoryTrims(t *testing.T) {
	history := NewMemoryHistory(3)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, history.Append(ctx, "conv", Entry{Role: RoleUser, Content: text}))
	}
	entries, err := history.Recent(ctx, "conv", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "b", entries[0].Content)

	last, _ := history.Recent(ctx, "conv", 1)
	require.Equal(t, "d", last[0].Content)
}
