package textnorm

import "testing"

func TestContainsFold(t *testing.T) {
	if !ContainsFold("HELLO there", "hello") {
		t.Fatal("expected case-insensitive match")
	}
	if !ContainsFold("ＨＥＬＬＯ", "hello") {
		t.Fatal("expected full-width characters to match")
	}
	if ContainsFold("anything", "   ") {
		t.Fatal("blank keyword must not match")
	}
}

func TestContainsWord(t *testing.T) {
	cases := []struct {
		text, kw string
		want     bool
	}{
		{"I'd like to book a business class seat", "ass", false},
		{"you ass!", "ass", true},
		{"Drug store visit", "drug", true},
		{"drugstore", "drug", false},
		{"이 자살 예방", "자살", true},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := ContainsWord(tc.text, tc.kw); got != tc.want {
			t.Fatalf("ContainsWord(%q, %q) = %v, want %v", tc.text, tc.kw, got, tc.want)
		}
	}
}
