package grants_test

import (
	"testing"

	"github.com/goliatone/go-grants"
	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Ada", "Ada"},
		{"collapses whitespace", "  Ada   Byron ", "Ada Byron"},
		{"strips path separators", "Ada/Byron\\King", "AdaByronKing"},
		{"normalizes curly apostrophes", "O’Brien", "O'Brien"},
		{"normalizes dash variants", "Jean–Luc — Picard", "Jean-Luc - Picard"},
		{"empty", "", ""},
		{"only whitespace", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grants.CleanName(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, grants.CleanName(got), "transform must be idempotent")
		})
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Byron", grants.FullName(" Ada ", "Byron"))
	assert.Equal(t, "Ada", grants.FullName("Ada", ""))
	assert.Equal(t, "Byron", grants.FullName("  ", "Byron"))
	assert.Equal(t, "", grants.FullName("", ""))
}
