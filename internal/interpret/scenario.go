package interpret

import (
	"encoding/json"
	"strings"

	"EnPeak/internal/scenario"
)

// Scenario 解析模型生成的场景 JSON。
// 阶段按出现顺序重新编号，缺失的 id、标题与模式取自 fallback；解析或校验失败时返回 fallback 的副本。
func Scenario(raw string, fallback *scenario.Scenario) (*scenario.Scenario, bool) {
	var draft scenario.Scenario
	if err := json.Unmarshal([]byte(StripFences(raw)), &draft); err != nil {
		degraded(ShapeScenario, "场景不是合法 JSON", raw)
		return fallback.Clone(), true
	}

	stages := draft.Stages[:0]
	for _, stage := range draft.Stages {
		stage.Name = strings.TrimSpace(stage.Name)
		stage.OpeningLine = Dequote(stage.OpeningLine)
		stage.LearningTip = Dequote(stage.LearningTip)
		stage.SuggestedReplies = cleanList(stage.SuggestedReplies, 0)
		if stage.Name == "" && stage.OpeningLine == "" {
			continue
		}
		stage.Ordinal = len(stages) + 1
		stages = append(stages, stage)
	}
	draft.Stages = stages

	if fallback != nil {
		if strings.TrimSpace(draft.ID) == "" {
			draft.ID = fallback.ID
		}
		if strings.TrimSpace(draft.Title) == "" {
			draft.Title = fallback.Title
		}
		if draft.Mode == "" {
			draft.Mode = fallback.Mode
		}
	}
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		degraded(ShapeScenario, err.Error(), raw)
		return fallback.Clone(), true
	}
	return &draft, false
}
