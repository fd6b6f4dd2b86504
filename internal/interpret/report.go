package interpret

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ReportDraft 是模型生成的会话报告字段。
type ReportDraft struct {
	OverallScore         int
	Strengths            []string
	AreasToImprove       []string
	VocabularyHighlights []string
	GrammarNotes         []string
	RecommendedPractice  []string
	Encouragement        string
}

// Report 解析会话报告 JSON，缺失的字段由 fallback 补齐，分数限制在 1..100。
func Report(raw string, fallback ReportDraft) (ReportDraft, bool) {
	var payload struct {
		OverallScore         json.RawMessage `json:"overall_score"`
		Strengths            []string        `json:"strengths"`
		AreasToImprove       []string        `json:"areas_to_improve"`
		VocabularyHighlights []string        `json:"vocabulary_highlights"`
		GrammarNotes         []string        `json:"grammar_notes"`
		RecommendedPractice  []string        `json:"recommended_practice"`
		Encouragement        string          `json:"encouragement"`
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		degraded(ShapeReport, "报告不是合法 JSON", raw)
		return fallback, true
	}

	draft := ReportDraft{
		OverallScore:         fallback.OverallScore,
		Strengths:            orDefault(payload.Strengths, fallback.Strengths),
		AreasToImprove:       orDefault(payload.AreasToImprove, fallback.AreasToImprove),
		VocabularyHighlights: orDefault(payload.VocabularyHighlights, fallback.VocabularyHighlights),
		GrammarNotes:         cleanList(payload.GrammarNotes, 0),
		RecommendedPractice:  cleanList(payload.RecommendedPractice, 0),
		Encouragement:        strings.TrimSpace(payload.Encouragement),
	}
	if score, ok := parseScore(payload.OverallScore); ok {
		draft.OverallScore = clamp(score, 1, 100)
	}
	if draft.Encouragement == "" {
		draft.Encouragement = fallback.Encouragement
	}
	return draft, false
}

func parseScore(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return int(number + 0.5), true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return int(v + 0.5), true
		}
	}
	return 0, false
}

func orDefault(items, fallback []string) []string {
	if cleaned := cleanList(items, 0); len(cleaned) > 0 {
		return cleaned
	}
	return append([]string(nil), fallback...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
