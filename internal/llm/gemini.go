package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// GeminiGuide uses Google's Gemini API to produce recycling guidance.
type GeminiGuide struct {
	client *genai.Client
	model  string
}

// NewGeminiGuide creates a new Gemini-based guidance provider.
func NewGeminiGuide(ctx context.Context, apiKey, model string) (*GeminiGuide, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGuide{client: client, model: model}, nil
}

// guidanceSchema mirrors guide.Guidance so the model returns exactly that shape.
func guidanceSchema() *genai.Schema {
	stringList := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: desc,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"analysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"item_type":         {Type: genai.TypeString},
					"primary_materials": stringList("Main materials of the item"),
					"recyclability": {
						Type: genai.TypeString,
						Enum: guide.Recyclabilities,
					},
					"summary": {Type: genai.TypeString},
				},
				Required:         []string{"item_type", "primary_materials", "recyclability", "summary"},
				PropertyOrdering: []string{"item_type", "primary_materials", "recyclability", "summary"},
			},
			"disposal_method": {Type: genai.TypeString},
			"preparation":     stringList("Steps to prepare the item before disposal"),
			"instructions":    stringList("Ordered disposal steps"),
			"warnings":        stringList("Safety or contamination warnings"),
			"tips":            stringList("Reuse or waste-reduction tips"),
		},
		Required: []string{"analysis", "disposal_method", "instructions"},
		PropertyOrdering: []string{
			"analysis", "disposal_method", "preparation", "instructions", "warnings", "tips",
		},
	}
}

// GetGuidance implements GuidanceProvider using Gemini structured output.
func (g *GeminiGuide) GetGuidance(ctx context.Context, description string) (*GuidanceResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    guidanceSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(description, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no response from Gemini", ErrMalformedGuidance)
	}

	parsed, err := parseGuidance(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", g.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Str("recyclability", parsed.Analysis.Recyclability).
		Msg("guidance llm call")

	return &GuidanceResult{Guidance: parsed, Usage: usage}, nil
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
