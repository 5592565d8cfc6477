package llm

import (
	"context"
	"errors"

	"github.com/raine/telegram-recycling-bot/internal/guide"
)

// ErrEmptyDescription is returned when a provider is asked about nothing.
var ErrEmptyDescription = errors.New("empty item description")

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// GuidanceResult contains the guidance and usage information.
type GuidanceResult struct {
	Guidance *guide.Guidance
	Usage    Usage
	Cached   bool
}

// GuidanceProvider turns an item description into recycling guidance.
type GuidanceProvider interface {
	// GetGuidance sends the description to the AI service and returns the
	// decoded, validated guidance.
	GetGuidance(ctx context.Context, description string) (*GuidanceResult, error)
}

const systemPrompt = `You are a recycling and waste disposal expert. The user describes an item they want to get rid of. Analyze the item and explain how to dispose of or recycle it responsibly.

Consider every material listed, the item's condition and any special features such as batteries, electronics, hazardous contents or food residue. If a location is given, tailor the advice to typical local practice there, but do not invent specific facility names or addresses.

Respond with a JSON object with these fields:
- analysis: object with
  - item_type: what the item is, in a few words
  - primary_materials: list of the main materials
  - recyclability: one of "recyclable", "partially", "not_recyclable", "special_handling", "unknown"
  - summary: 1-2 sentences summarizing the verdict
- disposal_method: where the item should go (e.g. curbside recycling, e-waste drop-off, household hazardous waste)
- preparation: list of steps to prepare the item before disposal (may be empty)
- instructions: ordered list of disposal steps (at least one)
- warnings: list of safety or contamination warnings (may be empty)
- tips: list of reuse, donation or waste-reduction tips (may be empty)

Respond ONLY with the JSON object, no markdown or other text.`
