package report

import (
	"context"
	"time"
)

// Report 是一次会话结束时生成的学习报告。
type Report struct {
	SessionID            string    `json:"session_id"`
	ScenarioID           string    `json:"scenario_id"`
	ScenarioTitle        string    `json:"scenario_title"`
	TotalTurns           int       `json:"total_turns"`
	Completed            bool      `json:"completed"`
	OverallScore         int       `json:"overall_score"`
	Strengths            []string  `json:"strengths"`
	AreasToImprove       []string  `json:"areas_to_improve"`
	VocabularyHighlights []string  `json:"vocabulary_highlights"`
	GrammarNotes         []string  `json:"grammar_notes"`
	RecommendedPractice  []string  `json:"recommended_practice"`
	Encouragement        string    `json:"encouragement"`
	Degraded             bool      `json:"degraded"`
	CreatedAt            time.Time `json:"created_at"`
}

// Archive 保存已结束会话的报告。
type Archive interface {
	Save(ctx context.Context, r Report) error
	Latest(ctx context.Context, limit int) ([]Report, error)
}

const (
	defaultLatest = 20
	maxLatest     = 100
)

// NormalizeLimit 将查询条数限制在 1..100，非正数使用默认值 20。
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLatest
	}
	if limit > maxLatest {
		return maxLatest
	}
	return limit
}
