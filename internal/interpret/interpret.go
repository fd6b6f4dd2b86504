// Package interpret turns free-form model output into values callers can
// render directly. Every function here is total: malformed output yields a
// deterministic fallback that is logged as degraded, never an error.
package interpret

import (
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"EnPeak/internal/observability/metrics"
	"EnPeak/pkg/logger"
)

const (
	// FallbackReply 在模型没有给出可用回复时使用。
	FallbackReply = "That sounds great! Is there anything else I can help you with?"

	// MaxSuggestions 是单轮回复附带的建议数上限。
	MaxSuggestions = 3

	fence = "```"
)

// Shape 标识期望的输出结构，用于日志与指标。
type Shape string

const (
	ShapePlainText Shape = "plain_text"
	ShapeTurn      Shape = "turn"
	ShapeList      Shape = "list"
	ShapeReport    Shape = "report"
	ShapeGrammar   Shape = "grammar"
	ShapeScenario  Shape = "scenario"
)

// Turn 是经过校验的单轮回复。
type Turn struct {
	Reply       string
	Suggestions []string
	LearningTip string
	Degraded    bool
}

// StripFences 去掉 Markdown 代码块包裹（可带 json 等语言标记），没有代码块时原样返回去空白后的文本。
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}
	body := text[start+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isLanguageTag(body[:nl]) {
		body = body[nl+1:]
	} else if strings.HasPrefix(strings.ToLower(body), "json") {
		body = body[len("json"):]
	}
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// Dequote 去掉首尾各一层引号。
func Dequote(text string) string {
	text = strings.TrimSpace(text)
	if r, size := utf8.DecodeRuneInString(text); size > 0 && isQuote(r) {
		text = text[size:]
	}
	if r, size := utf8.DecodeLastRuneInString(text); size > 0 && isQuote(r) {
		text = text[:len(text)-size]
	}
	return strings.TrimSpace(text)
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '“', '”', '‘', '’':
		return true
	}
	return false
}

// StructuredTurn 解析 {"response": ..., "suggestions": [...]} 形式的回复。
// 解析失败时整段文本作为回复，建议由 DefaultSuggestionsFor 生成。
func StructuredTurn(raw string) Turn {
	var payload struct {
		Response    string   `json:"response"`
		Suggestions []string `json:"suggestions"`
	}

	turn := Turn{}
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		degraded(ShapeTurn, "回复不是合法 JSON", raw)
		turn.Degraded = true
		text := strings.TrimSpace(raw)
		if strings.HasPrefix(text, fence) {
			text = StripFences(text)
		}
		turn.Reply = Dequote(text)
	} else {
		turn.Reply = Dequote(payload.Response)
		turn.Suggestions = cleanList(payload.Suggestions, MaxSuggestions)
	}

	if turn.Reply == "" {
		degraded(ShapeTurn, "回复为空", raw)
		turn.Degraded = true
		turn.Reply = FallbackReply
	}
	if len(turn.Suggestions) == 0 {
		turn.Suggestions = DefaultSuggestionsFor(turn.Reply)
	}
	return turn
}

// PlainText 返回去引号后的纯文本回复，为空时使用兜底回复。
func PlainText(raw string) (string, bool) {
	text := Dequote(raw)
	if text == "" {
		degraded(ShapePlainText, "回复为空", raw)
		return FallbackReply, true
	}
	return text, false
}

// List 解析字符串数组，最多保留 n 项。
// placeholder 非空时结果恰好为 n 项：解析失败用占位列表替代，数量不足用占位列表补齐。
func List(raw string, n int, placeholder []string) ([]string, bool) {
	items, err := parseStringList(StripFences(raw))
	if err != nil {
		degraded(ShapeList, "列表不是合法 JSON", raw)
		return pad(nil, n, placeholder), true
	}
	items = cleanList(items, n)
	if len(placeholder) > 0 && len(items) < n {
		degraded(ShapeList, "列表数量不足", raw)
		return pad(items, n, placeholder), true
	}
	return items, false
}

func parseStringList(text string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, nil
	}
	var wrapped map[string][]string
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	for _, list := range wrapped {
		if len(list) > 0 {
			return list, nil
		}
	}
	return nil, nil
}

func pad(items []string, n int, placeholder []string) []string {
	out := append([]string(nil), items...)
	for _, candidate := range placeholder {
		if len(out) >= n {
			break
		}
		if !containsFold(out, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = Dequote(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// Tip 解析学习提示；模型回答 null 或过短时视为没有提示。
func Tip(raw string) string {
	tip := Dequote(raw)
	if strings.EqualFold(tip, "null") || utf8.RuneCountInString(tip) < 5 {
		return ""
	}
	return tip
}

func degraded(shape Shape, reason, raw string) {
	metrics.ObserveDegraded(string(shape))
	logger.L().Warn("模型输出解析降级",
		slog.String("shape", string(shape)),
		slog.String("reason", reason),
		slog.String("raw", truncate(raw, 200)))
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
