package interpret

import "strings"

type suggestionRule struct {
	match   func(lower, original string) bool
	replies []string
}

func containsAny(keywords ...string) func(string, string) bool {
	return func(lower, _ string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// 规则按优先级排列，命中第一条即返回。
var suggestionRules = []suggestionRule{
	{containsAny("would you like", "do you want"), []string{"Yes, please.", "No, thank you."}},
	{containsAny("what size", "which size"), []string{"Medium, please.", "Large one, please."}},
	{containsAny("cash or card", "how would you like to pay"), []string{"Card, please.", "I'll pay with cash."}},
	{containsAny("anything else"), []string{"No, that's all. Thank you!", "Actually, can I also get..."}},
	{containsAny("what can i get", "what would you like"), []string{"I'd like to order...", "Can I get..."}},
	{containsAny("name"), []string{"My name is...", "It's under..."}},
	{func(lower, _ string) bool {
		return strings.Contains(lower, "have a") && (strings.Contains(lower, "day") || strings.Contains(lower, "nice"))
	}, []string{"Thank you! You too!", "Thanks, have a good day!"}},
	{func(_, original string) bool { return strings.Contains(original, "?") }, []string{"Yes, please.", "No, thank you."}},
}

var acknowledgement = []string{"I see, thank you.", "Okay, sounds good."}

// DefaultSuggestionsFor 根据对方回复推导学习者可用的回答，模型未提供建议时使用。
func DefaultSuggestionsFor(reply string) []string {
	lower := strings.ToLower(reply)
	for _, rule := range suggestionRules {
		if rule.match(lower, reply) {
			return append([]string(nil), rule.replies...)
		}
	}
	return append([]string(nil), acknowledgement...)
}
