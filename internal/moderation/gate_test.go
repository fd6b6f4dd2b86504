package moderation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	xerrors "EnPeak/internal/errors"
)

func TestKeywordGate(t *testing.T) {
	gate := NewKeywordGate()
	cases := []struct {
		text    string
		allowed bool
		reason  string
	}{
		{"Ordering coffee at a cafe", true, "OK"},
		{"Upgrading to business class at the airport", true, "OK"},
		{"Buying a WEAPON downtown", false, reasonInappropriate},
		{"친구에게 씨발이라고 말하기", false, reasonInappropriate},
		{"Asking the bank for my Credit Card number", false, reasonSensitive},
		{"How to hack the wifi", false, reasonSensitive},
	}
	for _, tc := range cases {
		verdict := gate.Check(tc.text)
		require.Equal(t, tc.allowed, verdict.Allowed, "text %q", tc.text)
		require.Equal(t, tc.reason, verdict.Reason, "text %q", tc.text)
	}
}

func TestKeywordGateExtraKeywords(t *testing.T) {
	gate := NewKeywordGate("casino", "  ")
	require.False(t, gate.Check("A night at the casino").Allowed)
}

func TestRequire(t *testing.T) {
	gate := NewKeywordGate()
	require.NoError(t, Require(gate, "cafe", "ordering a latte"))
	require.NoError(t, Require(nil, "anything"))

	err := Require(gate, "cafe", "selling drug samples")
	require.Error(t, err)
	require.True(t, errors.Is(err, xerrors.New(xerrors.CodeModerationRejected, "")))
	require.Equal(t, reasonInappropriate, xerrors.PublicMessage(err))
}
