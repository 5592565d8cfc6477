package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raine/telegram-recycling-bot/internal/guide"
)

// ErrMalformedGuidance marks a provider response that could not be turned
// into usable guidance.
var ErrMalformedGuidance = errors.New("malformed guidance response")

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", truncate(text, 200))
	}
	return text[start : end+1], nil
}

func parseGuidance(text string) (*guide.Guidance, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGuidance, err)
	}

	var g guide.Guidance
	if err := json.Unmarshal([]byte(jsonStr), &g); err != nil {
		return nil, fmt.Errorf("%w: %v (response: %s)", ErrMalformedGuidance, err, truncate(jsonStr, 200))
	}

	g.Normalize()
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGuidance, err)
	}

	return &g, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
