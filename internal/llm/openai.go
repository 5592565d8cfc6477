package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultOpenAIBaseURL is the public OpenAI API. Any compatible server
	// (OpenRouter, Ollama, vLLM) can be used instead.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
)

// gpt-4o-mini pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 0.15
	openaiOutputPricePerMillion = 0.60
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIGuide talks to an OpenAI-compatible /chat/completions endpoint.
type OpenAIGuide struct {
	httpClient *resty.Client
	model      string
}

// OpenAIOpts configures an OpenAIGuide.
type OpenAIOpts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIGuide creates a new OpenAI-compatible guidance provider.
func NewOpenAIGuide(opts OpenAIOpts) (*OpenAIGuide, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	httpClient := resty.New().
		SetDebug(false).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(opts.APIKey).
		SetTimeout(2*time.Minute).
		SetHeader("Content-Type", "application/json")

	return &OpenAIGuide{httpClient: httpClient, model: model}, nil
}

// GetGuidance implements GuidanceProvider.
func (o *OpenAIGuide) GetGuidance(ctx context.Context, description string) (*GuidanceResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: description},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	result := &chatResponse{}
	errResult := &apiError{}
	res, err := o.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(errResult).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if res.IsError() {
		msg := errResult.Error.Message
		if msg == "" {
			msg = truncate(strings.TrimSpace(res.String()), 200)
		}
		return nil, fmt.Errorf("chat completion failed (status: %d): %s", res.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedGuidance)
	}

	parsed, err := parseGuidance(result.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	usage := Usage{
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		TotalTokens:  result.Usage.TotalTokens,
		CostUSD:      calculateCost(result.Usage.PromptTokens, result.Usage.CompletionTokens, openaiInputPricePerMillion, openaiOutputPricePerMillion),
	}

	log.Info().
		Str("model", o.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Str("recyclability", parsed.Analysis.Recyclability).
		Msg("guidance llm call")

	return &GuidanceResult{Guidance: parsed, Usage: usage}, nil
}
