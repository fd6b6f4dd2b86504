// Package textnorm normalizes learner and model text before keyword matching.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold 对文本做 NFKC 规范化与大小写折叠，使全角字符、大小写差异不影响匹配。
func Fold(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// ContainsFold 判断 text 是否包含 keyword（忽略大小写与全半角差异）。
func ContainsFold(text, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	return strings.Contains(Fold(text), Fold(keyword))
}

// ContainsWord 判断 keyword 是否以完整单词的形式出现在 text 中。
// 非拉丁关键字（如韩文）仍按子串匹配。
func ContainsWord(text, keyword string) bool {
	folded := Fold(text)
	kw := Fold(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	if !isLatin(kw) {
		return strings.Contains(folded, kw)
	}
	for offset := 0; offset < len(folded); {
		idx := strings.Index(folded[offset:], kw)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(kw)
		if boundaryBefore(folded, start) && boundaryAfter(folded, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
