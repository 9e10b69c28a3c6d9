package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "San Francisco, CA", CleanText("  San Francisco,   CA \n"))
	require.Equal(t, "", CleanText("   \t\n"))
	require.Equal(t, "one two", CleanText("one\n\ntwo"))
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Location: Remote", "Remote"},
		{"Remote, Remote, US", "Remote, US"},
		{"  New York ,  NY ", "New York, NY"},
		{"", ""},
		{"LOCATIONS: London, London", "London"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeLocation(tt.in), "input %q", tt.in)
	}
}
