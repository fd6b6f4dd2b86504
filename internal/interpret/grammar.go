package interpret

import (
	"encoding/json"
	"strings"
)

// GrammarIssue 描述一处语法或用词问题。
type GrammarIssue struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
}

// GrammarFeedback 是语法检查的结果。
type GrammarFeedback struct {
	IsCorrect     bool           `json:"is_correct"`
	CorrectedText string         `json:"corrected_text,omitempty"`
	Errors        []GrammarIssue `json:"errors"`
	Encouragement string         `json:"encouragement"`
	Tip           string         `json:"tip,omitempty"`
	Degraded      bool           `json:"-"`
}

// Grammar 解析语法反馈 JSON，失败时视为句子正确并给出通用鼓励。
func Grammar(raw string) GrammarFeedback {
	var payload struct {
		IsCorrect         *bool          `json:"is_correct"`
		CorrectedSentence string         `json:"corrected_sentence"`
		Errors            []GrammarIssue `json:"errors"`
		Encouragement     string         `json:"encouragement"`
		Tip               string         `json:"tip"`
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		degraded(ShapeGrammar, "语法反馈不是合法 JSON", raw)
		return GrammarFeedback{
			IsCorrect:     true,
			Errors:        []GrammarIssue{},
			Encouragement: "Keep practicing! 계속 연습하세요!",
			Tip:           "Try to express your thoughts naturally.",
			Degraded:      true,
		}
	}

	feedback := GrammarFeedback{
		IsCorrect:     true,
		CorrectedText: strings.TrimSpace(payload.CorrectedSentence),
		Errors:        make([]GrammarIssue, 0, len(payload.Errors)),
		Encouragement: strings.TrimSpace(payload.Encouragement),
		Tip:           strings.TrimSpace(payload.Tip),
	}
	if payload.IsCorrect != nil {
		feedback.IsCorrect = *payload.IsCorrect
	}
	for _, issue := range payload.Errors {
		if issue.Type == "" {
			issue.Type = "grammar"
		}
		feedback.Errors = append(feedback.Errors, issue)
	}
	if feedback.Encouragement == "" {
		feedback.Encouragement = "Good effort!"
	}
	return feedback
}
