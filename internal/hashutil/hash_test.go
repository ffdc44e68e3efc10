package hashutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha256Hex(t *testing.T) {
	got := Sha256Hex([]byte("diplomat"))
	require.Len(t, got, 64)
	require.Equal(t, got, Sha256Hex([]byte("diplomat")))
	require.NotEqual(t, got, Sha256Hex([]byte("diplomats")))
}

func TestLeadingZeroBits(t *testing.T) {
	cases := []struct {
		hex  string
		bits int
	}{
		{strings.Repeat("0", 64), 256},
		{"8" + strings.Repeat("0", 63), 0},
		{"4" + strings.Repeat("0", 63), 1},
		{"1" + strings.Repeat("0", 63), 3},
		{"0" + "1" + strings.Repeat("0", 62), 7},
		{"00" + "8" + strings.Repeat("0", 61), 8},
	}
	for _, c := range cases {
		require.Equal(t, c.bits, LeadingZeroBits(c.hex), "hex=%s", c.hex)
	}
}

func TestLeadingZeroBitsMalformed(t *testing.T) {
	require.Equal(t, 0, LeadingZeroBits("not-hex"))
}

func TestMeetsDifficulty(t *testing.T) {
	h := strings.Repeat("0", 5) + "1" + strings.Repeat("f", 58)
	require.True(t, MeetsDifficulty(h, 20))
	require.False(t, MeetsDifficulty(h, 24))
}
