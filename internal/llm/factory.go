package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by NewProvider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures a guidance provider.
type ProviderConfig struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// NewProvider builds the configured provider. An empty provider name means
// Gemini.
func NewProvider(ctx context.Context, cfg ProviderConfig) (GuidanceProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiGuide(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderOpenAI:
		return NewOpenAIGuide(OpenAIOpts{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	default:
		return nil, fmt.Errorf("unknown guidance provider %q", cfg.Provider)
	}
}
