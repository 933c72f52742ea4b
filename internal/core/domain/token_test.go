package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_Format(t *testing.T) {
	token, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, token, TokenLength)
	assert.True(t, ValidTokenFormat(token), "generated token %q should be valid", token)
}

func TestNewToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token %q", token)
		seen[token] = true
	}
}

func TestValidTokenFormat(t *testing.T) {
	valid := strings.Repeat("aZ9", 21) + "x"
	require.Len(t, valid, TokenLength)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", valid, true},
		{"empty", "", false},
		{"too short", valid[:63], false},
		{"too long", valid + "a", false},
		{"traversal", "../" + valid[3:], false},
		{"slash", valid[:32] + "/" + valid[33:], false},
		{"dash", valid[:10] + "-" + valid[11:], false},
		{"unicode", "é" + valid[2:], false},
		{"null byte", valid[:63] + "\x00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTokenFormat(tt.token))
		})
	}
}
