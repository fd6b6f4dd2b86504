package interpret

import (
	"testing"

	"github.com/stretchr/testify/require"

	"EnPeak/internal/scenario"
)

func TestStructuredTurnFencedJSON(t *testing.T) {
	turn := StructuredTurn("```json\n{\"response\":\"Sure!\",\"suggestions\":[\"ok\",\"thanks\"]}\n```")
	require.Equal(t, "Sure!", turn.Reply)
	require.Equal(t, []string{"ok", "thanks"}, turn.Suggestions)
	require.False(t, turn.Degraded)
}

func TestStructuredTurnIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		`{"response": ""}`,
		`{"suggestions": ["a"]}`,
		"```\nnot json at all\n```",
		"Just some prose without structure.",
		`"quoted reply?"`,
		`[1, 2, 3]`,
		"```json",
	}
	for _, raw := range inputs {
		turn := StructuredTurn(raw)
		require.NotEmpty(t, turn.Reply, "input %q", raw)
		require.NotEmpty(t, turn.Suggestions, "input %q", raw)
		require.LessOrEqual(t, len(turn.Suggestions), MaxSuggestions, "input %q", raw)
	}
}

func TestStructuredTurnFallsBackToRawText(t *testing.T) {
	turn := StructuredTurn(`"Would you like whipped cream on that?"`)
	require.True(t, turn.Degraded)
	require.Equal(t, "Would you like whipped cream on that?", turn.Reply)
	require.Equal(t, []string{"Yes, please.", "No, thank you."}, turn.Suggestions)

	turn = StructuredTurn("```\nHere you go, enjoy.\n```")
	require.Equal(t, "Here you go, enjoy.", turn.Reply)
}

func TestStructuredTurnEmptyReplyUsesFallback(t *testing.T) {
	turn := StructuredTurn(`{"response":"  ","suggestions":[]}`)
	require.True(t, turn.Degraded)
	require.Equal(t, FallbackReply, turn.Reply)
	require.Equal(t, DefaultSuggestionsFor(FallbackReply), turn.Suggestions)
}

func TestStructuredTurnCapsSuggestions(t *testing.T) {
	turn := StructuredTurn(`{"response":"'Hi there'","suggestions":["a","","b","c","d"]}`)
	require.Equal(t, "Hi there", turn.Reply)
	require.Equal(t, []string{"a", "b", "c"}, turn.Suggestions)
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```JSON\n[1]\n```":       `[1]`,
		"```{\"a\":1}```":         `{"a":1}`,
		"```json {\"a\":1}```":    `{"a":1}`,
		"  plain  ":               "plain",
		"Sure:\n```\n[\"x\"]\n```": `["x"]`,
	}
	for in, want := range cases {
		require.Equal(t, want, StripFences(in), "input %q", in)
	}
}

func TestDequote(t *testing.T) {
	require.Equal(t, "Hello", Dequote(`"Hello"`))
	require.Equal(t, "Hello", Dequote(` 'Hello' `))
	require.Equal(t, `"Hello"`, Dequote(`""Hello""`))
	require.Equal(t, "I'll pay with cash.", Dequote("I'll pay with cash."))
	require.Equal(t, "", Dequote(`""`))
}

func TestPlainText(t *testing.T) {
	text, degraded := PlainText("  \"Nice to meet you!\" ")
	require.False(t, degraded)
	require.Equal(t, "Nice to meet you!", text)

	text, degraded = PlainText("")
	require.True(t, degraded)
	require.Equal(t, FallbackReply, text)
}

func TestListFixedCardinality(t *testing.T) {
	placeholder := []string{"I see!", "That sounds great!", "Can you tell me more?"}

	items, degraded := List("```json\n[\"Sounds fun!\", \"Where?\", \"When?\", \"Why?\"]\n```", 3, placeholder)
	require.False(t, degraded)
	require.Equal(t, []string{"Sounds fun!", "Where?", "When?"}, items)

	items, degraded = List("not a list", 3, placeholder)
	require.True(t, degraded)
	require.Equal(t, placeholder, items)

	items, degraded = List(`["I see!"]`, 3, placeholder)
	require.True(t, degraded)
	require.Equal(t, []string{"I see!", "That sounds great!", "Can you tell me more?"}, items)

	items, _ = List(`{"suggestions":["a","b","c"]}`, 3, placeholder)
	require.Equal(t, []string{"a", "b", "c"}, items)
}

func TestListWithoutPlaceholderMayBeShort(t *testing.T) {
	items, degraded := List(`["I would like a coffee, please."]`, 2, nil)
	require.False(t, degraded)
	require.Equal(t, []string{"I would like a coffee, please."}, items)

	items, degraded = List("oops", 2, nil)
	require.True(t, degraded)
	require.Empty(t, items)
}

func TestTip(t *testing.T) {
	require.Equal(t, "", Tip("null"))
	require.Equal(t, "", Tip(" NULL "))
	require.Equal(t, "", Tip("좋아요"))
	require.Equal(t, "'I want' 대신 'I'd like'를 써 보세요.", Tip("'I want' 대신 'I'd like'를 써 보세요."))
}

func TestReportParsesAndClamps(t *testing.T) {
	fallback := ReportDraft{
		OverallScore:   70,
		Strengths:      []string{"You completed the conversation!"},
		AreasToImprove: []string{"Practice natural responses"},
		Encouragement:  "Great job!",
	}

	draft, degraded := Report("```json\n{\"overall_score\": 140, \"strengths\": [\"Polite requests\"], \"encouragement\": \"잘했어요!\"}\n```", fallback)
	require.False(t, degraded)
	require.Equal(t, 100, draft.OverallScore)
	require.Equal(t, []string{"Polite requests"}, draft.Strengths)
	require.Equal(t, fallback.AreasToImprove, draft.AreasToImprove)
	require.Equal(t, "잘했어요!", draft.Encouragement)

	draft, _ = Report(`{"overall_score": "85"}`, fallback)
	require.Equal(t, 85, draft.OverallScore)
	require.Equal(t, "Great job!", draft.Encouragement)

	draft, degraded = Report("The learner did well.", fallback)
	require.True(t, degraded)
	require.Equal(t, fallback, draft)
}

func TestGrammar(t *testing.T) {
	feedback := Grammar(`{"is_correct": false, "corrected_sentence": "I went to school.", "errors": [{"original": "goed", "correction": "went", "explanation": "불규칙 동사"}], "encouragement": "좋아요!"}`)
	require.False(t, feedback.IsCorrect)
	require.Equal(t, "I went to school.", feedback.CorrectedText)
	require.Len(t, feedback.Errors, 1)
	require.Equal(t, "grammar", feedback.Errors[0].Type)

	feedback = Grammar("I cannot answer that")
	require.True(t, feedback.Degraded)
	require.True(t, feedback.IsCorrect)
	require.Equal(t, "Keep practicing! 계속 연습하세요!", feedback.Encouragement)
}

func TestScenarioNormalizesAndFallsBack(t *testing.T) {
	fallback := &scenario.Scenario{
		ID:     "custom_1",
		Title:  "Default",
		Mode:   scenario.ModeGenerative,
		Stages: []scenario.Stage{{Ordinal: 1, Name: "Greeting", OpeningLine: "Hello!"}},
	}

	sc, degraded := Scenario("```json\n{\"title\":\"Bank\",\"stages\":[{\"stage\":2,\"name\":\"Open\",\"ai_opening\":\"Hi\"},{\"name\":\"\",\"ai_opening\":\"\"},{\"stage\":9,\"name\":\"Close\"}]}\n```", fallback)
	require.False(t, degraded)
	require.Equal(t, "custom_1", sc.ID)
	require.Equal(t, "Bank", sc.Title)
	require.Equal(t, scenario.ModeGenerative, sc.Mode)
	require.Len(t, sc.Stages, 2)
	require.Equal(t, 2, sc.Stages[1].Ordinal)

	for _, raw := range []string{"nope", `{"title":"x","stages":[]}`, `{"stages":[{"name":"No opening"}]}`} {
		sc, degraded := Scenario(raw, fallback)
		require.True(t, degraded, raw)
		require.Equal(t, fallback, sc)
		require.NotSame(t, fallback, sc)
	}
}
