package guide

import (
	"errors"
	"fmt"
	"strings"
)

// Recyclability verdicts. Providers are asked for these values; anything else
// is normalised to RecyclabilityUnknown.
const (
	RecyclabilityRecyclable      = "recyclable"
	RecyclabilityPartially       = "partially"
	RecyclabilityNotRecyclable   = "not_recyclable"
	RecyclabilitySpecialHandling = "special_handling"
	RecyclabilityUnknown         = "unknown"
)

// Recyclabilities lists the accepted verdicts, used for provider schemas.
var Recyclabilities = []string{
	RecyclabilityRecyclable,
	RecyclabilityPartially,
	RecyclabilityNotRecyclable,
	RecyclabilitySpecialHandling,
	RecyclabilityUnknown,
}

// Analysis is the provider's reading of what the item is.
type Analysis struct {
	ItemType         string   `json:"item_type"`
	PrimaryMaterials []string `json:"primary_materials"`
	Recyclability    string   `json:"recyclability"`
	Summary          string   `json:"summary"`
}

// Guidance is the structured disposal advice returned by a provider.
type Guidance struct {
	Analysis       Analysis `json:"analysis"`
	DisposalMethod string   `json:"disposal_method"`
	Preparation    []string `json:"preparation"`
	Instructions   []string `json:"instructions"`
	Warnings       []string `json:"warnings"`
	Tips           []string `json:"tips"`
}

var (
	errNoGuidance     = errors.New("guidance is missing")
	errNoSummary      = errors.New("guidance analysis has no summary")
	errNoInstructions = errors.New("guidance has no instructions")
)

// Validate checks that g carries a recognizable guidance payload: an analysis
// summary and at least one instruction.
func (g *Guidance) Validate() error {
	if g == nil {
		return errNoGuidance
	}
	if strings.TrimSpace(g.Analysis.Summary) == "" {
		return errNoSummary
	}
	for _, in := range g.Instructions {
		if strings.TrimSpace(in) != "" {
			return nil
		}
	}
	return errNoInstructions
}

// Normalize trims text, drops blank list entries and maps the recyclability
// verdict onto the known set.
func (g *Guidance) Normalize() {
	g.Analysis.ItemType = strings.TrimSpace(g.Analysis.ItemType)
	g.Analysis.Summary = strings.TrimSpace(g.Analysis.Summary)
	g.Analysis.PrimaryMaterials = compact(g.Analysis.PrimaryMaterials)
	g.Analysis.Recyclability = NormalizeRecyclability(g.Analysis.Recyclability)
	g.DisposalMethod = strings.TrimSpace(g.DisposalMethod)
	g.Preparation = compact(g.Preparation)
	g.Instructions = compact(g.Instructions)
	g.Warnings = compact(g.Warnings)
	g.Tips = compact(g.Tips)
}

// NormalizeRecyclability maps free-form verdicts onto Recyclabilities.
func NormalizeRecyclability(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch v {
	case RecyclabilityRecyclable, "yes", "fully_recyclable":
		return RecyclabilityRecyclable
	case RecyclabilityPartially, "partial", "partially_recyclable":
		return RecyclabilityPartially
	case RecyclabilityNotRecyclable, "no", "non_recyclable":
		return RecyclabilityNotRecyclable
	case RecyclabilitySpecialHandling, "hazardous", "special":
		return RecyclabilitySpecialHandling
	default:
		return RecyclabilityUnknown
	}
}

// RecyclabilityLabel returns a short display label with an emoji marker.
func RecyclabilityLabel(v string) string {
	switch v {
	case RecyclabilityRecyclable:
		return "♻️ Recyclable"
	case RecyclabilityPartially:
		return "🔀 Partially recyclable"
	case RecyclabilityNotRecyclable:
		return "🚫 Not recyclable"
	case RecyclabilitySpecialHandling:
		return "⚠️ Needs special handling"
	default:
		return "❔ Unknown"
	}
}

// Markdown renders the guidance as a CommonMark document.
func (g *Guidance) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Recycling guidance\n\n")

	sb.WriteString("## Analysis\n\n")
	if g.Analysis.ItemType != "" {
		fmt.Fprintf(&sb, "**Item:** %s\n\n", g.Analysis.ItemType)
	}
	if len(g.Analysis.PrimaryMaterials) > 0 {
		fmt.Fprintf(&sb, "**Materials:** %s\n\n", strings.Join(g.Analysis.PrimaryMaterials, ", "))
	}
	fmt.Fprintf(&sb, "**Verdict:** %s\n\n", RecyclabilityLabel(g.Analysis.Recyclability))
	sb.WriteString(g.Analysis.Summary)
	sb.WriteString("\n\n")

	if g.DisposalMethod != "" {
		fmt.Fprintf(&sb, "## Where it goes\n\n%s\n\n", g.DisposalMethod)
	}
	writeList(&sb, "Preparation", g.Preparation, false)
	writeList(&sb, "Instructions", g.Instructions, true)
	writeList(&sb, "Warnings", g.Warnings, false)
	writeList(&sb, "Tips", g.Tips, false)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeList(sb *strings.Builder, title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(sb, "%d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(sb, "- %s\n", item)
		}
	}
	sb.WriteString("\n")
}

func compact(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
