package interpret

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSuggestionsForRules(t *testing.T) {
	cases := []struct {
		reply string
		want  []string
	}{
		{"Would you like a receipt?", []string{"Yes, please.", "No, thank you."}},
		{"Do you want it iced", []string{"Yes, please.", "No, thank you."}},
		{"What size would you like?", []string{"Yes, please.", "No, thank you."}},
		{"Which size is better for you", []string{"Medium, please.", "Large one, please."}},
		{"Cash or card?", []string{"Card, please.", "I'll pay with cash."}},
		{"How would you like to pay today.", []string{"Yes, please.", "No, thank you."}},
		{"Anything else for you?", []string{"No, that's all. Thank you!", "Actually, can I also get..."}},
		{"Hi! What can I get for you?", []string{"I'd like to order...", "Can I get..."}},
		{"Can I have a name for the order?", []string{"My name is...", "It's under..."}},
		{"Have a nice one!", []string{"Thank you! You too!", "Thanks, have a good day!"}},
		{"Have a great day.", []string{"Thank you! You too!", "Thanks, have a good day!"}},
		{"Is this your first visit?", []string{"Yes, please.", "No, thank you."}},
		{"Here is your latte.", []string{"I see, thank you.", "Okay, sounds good."}},
		{"", []string{"I see, thank you.", "Okay, sounds good."}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DefaultSuggestionsFor(tc.reply), "reply %q", tc.reply)
	}
}

func TestDefaultSuggestionsForIsDeterministic(t *testing.T) {
	first := DefaultSuggestionsFor("Anything else?")
	first[0] = "mutated"
	second := DefaultSuggestionsFor("Anything else?")
	require.Equal(t, []string{"No, that's all. Thank you!", "Actually, can I also get..."}, second)
}
