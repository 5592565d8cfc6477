package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups may be addressed as /cmd@botname
	cmd, _, _ := strings.Cut(parts[0], "@")
	return cmd, parts[1:]
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

// truncateRunes shortens s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// isValidLocation accepts any non-empty single line up to 100 characters.
func isValidLocation(loc string) bool {
	loc = strings.TrimSpace(loc)
	if loc == "" || strings.HasPrefix(loc, "/") || strings.ContainsAny(loc, "\n\r") {
		return false
	}
	return utf8.RuneCountInString(loc) <= 100
}
