package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		cmd  string
		args []string
	}{
		{"/new", "/new", []string{}},
		{"/admin users add 5", "/admin", []string{"users", "add", "5"}},
		{"/help@recycling_bot", "/help", []string{}},
		{"   ", "", nil},
	}
	for _, tt := range tests {
		cmd, args := parseCommand(tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\*b\_c\`+"`"+`d\[e]`, escapeMarkdown("a*b_c`d[e]"))
}

func TestFormatReplyText(t *testing.T) {
	text := `
		Hello %s

		Bye`
	assert.Equal(t, "Hello world\n\nBye", formatReplyText(text, "world"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "äää…", truncateRunes("ääääää", 4))
}

func TestIsValidLocation(t *testing.T) {
	assert.True(t, isValidLocation("Helsinki"))
	assert.True(t, isValidLocation("  10001 "))
	assert.False(t, isValidLocation(""))
	assert.False(t, isValidLocation("/new"))
	assert.False(t, isValidLocation("two\nlines"))
	assert.False(t, isValidLocation(strings.Repeat("a", 101)))
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 user", pluralize("user", "users", 1))
	assert.Equal(t, "0 users", pluralize("user", "users", 0))
	assert.Equal(t, "3 users", pluralize("user", "users", 3))
}
