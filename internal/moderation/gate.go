// Package moderation screens learner-authored scenario text before it is
// sent to the model or shared with other learners.
package moderation

import (
	"regexp"
	"strings"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/textnorm"
)

const (
	reasonInappropriate = "부적절한 내용이 포함되어 있습니다."
	reasonSensitive     = "보안상 민감한 내용이 포함되어 있습니다."
)

// Verdict 是一次审核的结论。
type Verdict struct {
	Allowed bool
	Reason  string
}

// Gate 对文本做允许/拒绝判断，不产生副作用。
type Gate interface {
	Check(text string) Verdict
}

var (
	defaultBlocked = []string{
		"fuck", "shit", "damn", "ass", "bitch", "bastard",
		"씨발", "병신", "개새끼", "죽어", "살인", "자살",
		"porn", "sex", "nude", "xxx", "drug", "weapon",
	}
	defaultSuspicious = []*regexp.Regexp{
		regexp.MustCompile(`(password|credit.?card|ssn|social.?security)`),
		regexp.MustCompile(`(hack|exploit|inject|malware|virus)`),
	}
)

// KeywordGate 基于关键字黑名单与可疑模式进行审核。
type KeywordGate struct {
	blocked    []string
	suspicious []*regexp.Regexp
}

// NewKeywordGate 创建使用默认词表的审核器，extra 会追加到黑名单。
func NewKeywordGate(extra ...string) *KeywordGate {
	blocked := append([]string(nil), defaultBlocked...)
	for _, kw := range extra {
		if kw = strings.TrimSpace(kw); kw != "" {
			blocked = append(blocked, kw)
		}
	}
	return &KeywordGate{blocked: blocked, suspicious: defaultSuspicious}
}

// Check 实现 Gate。
func (g *KeywordGate) Check(text string) Verdict {
	for _, kw := range g.blocked {
		if textnorm.ContainsWord(text, kw) {
			return Verdict{Reason: reasonInappropriate}
		}
	}
	folded := textnorm.Fold(text)
	for _, pattern := range g.suspicious {
		if pattern.MatchString(folded) {
			return Verdict{Reason: reasonSensitive}
		}
	}
	return Verdict{Allowed: true, Reason: "OK"}
}

// Require 在审核不通过时返回 MODERATION_REJECTED 错误。
func Require(g Gate, texts ...string) error {
	if g == nil {
		return nil
	}
	verdict := g.Check(strings.Join(texts, " "))
	if verdict.Allowed {
		return nil
	}
	return xerrors.New(xerrors.CodeModerationRejected, verdict.Reason)
}

var _ Gate = (*KeywordGate)(nil)
