package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raine/telegram-recycling-bot/internal/bot"
	"github.com/raine/telegram-recycling-bot/internal/guide"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "guide-cli",
		Short: "Get recycling guidance for an item from the terminal",
		Long: `guide-cli describes an item through the same four steps as the
Telegram bot: item, materials, details and location. It can print the
assembled description or ask the configured guidance provider.`,
		SilenceUsage: true,
	}
	root.Version = bot.Version
	root.SetVersionTemplate("guide-cli version {{.Version}}\n")

	root.AddCommand(newDescribeCmd(), newAskCmd())
	return root
}

// itemFlags holds the form values given on the command line.
type itemFlags struct {
	item        string
	materials   []string
	other       string
	size        string
	condition   string
	plasticType string
	quantity    string
	features    string
	location    string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.item, "item", "", "item name")
	fl.StringSliceVar(&f.materials, "material", nil, "material label or catalog number, repeatable")
	fl.StringVar(&f.other, "other", "", "materials not in the catalog")
	fl.StringVar(&f.size, "size", "", "size: small, medium, large or extra large")
	fl.StringVar(&f.condition, "condition", "", "item condition")
	fl.StringVar(&f.plasticType, "plastic-type", "", "plastic type or recycling code")
	fl.StringVar(&f.quantity, "quantity", "", "quantity")
	fl.StringVar(&f.features, "features", "", "special features or concerns")
	fl.StringVar(&f.location, "location", "", "city or postal code")
}

// actions converts the flags into reducer actions. Unknown catalog values
// are reported as errors instead of being dropped.
func (f *itemFlags) actions() ([]guide.Action, error) {
	var acts []guide.Action
	set := func(field guide.Field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			acts = append(acts, guide.UpdateField{Field: field, Value: v})
		}
	}

	set(guide.FieldItemName, f.item)
	for _, raw := range f.materials {
		m, err := parseMaterial(raw)
		if err != nil {
			return nil, err
		}
		acts = append(acts, guide.ToggleMaterial{Material: m})
	}
	set(guide.FieldMaterialsOther, f.other)

	if f.size != "" {
		i, err := matchLabel(f.size, labels(guide.Sizes))
		if err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
		set(guide.FieldSize, string(guide.Sizes[i]))
	}
	if f.condition != "" {
		i, err := matchLabel(f.condition, labels(guide.Conditions))
		if err != nil {
			return nil, fmt.Errorf("condition: %w", err)
		}
		set(guide.FieldCondition, string(guide.Conditions[i]))
	}

	set(guide.FieldPlasticType, f.plasticType)
	set(guide.FieldQuantity, f.quantity)
	set(guide.FieldSpecialFeatures, f.features)
	set(guide.FieldUserLocation, f.location)
	return acts, nil
}

func parseMaterial(raw string) (guide.Material, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		m, ok := guide.MaterialAt(n - 1)
		if !ok {
			return "", fmt.Errorf("material number %d out of range 1-%d", n, len(guide.Materials))
		}
		return m, nil
	}
	i, err := matchLabel(raw, labels(guide.Materials))
	if err != nil {
		return "", fmt.Errorf("material: %w", err)
	}
	return guide.Materials[i], nil
}

// matchLabel finds a catalog label by case-insensitive exact match or by the
// part before a parenthesized hint, so "large" matches "Large (size of a box)".
func matchLabel(input string, options []string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(input))
	for i, o := range options {
		if strings.ToLower(o) == want {
			return i, nil
		}
	}
	for i, o := range options {
		short, _, _ := strings.Cut(o, " (")
		if strings.ToLower(short) == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q, expected one of: %s", input, strings.Join(options, ", "))
}

func labels[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// walk feeds actions through the reducer and then advances to the last step,
// where submit is possible.
func walk(s guide.State, acts []guide.Action) guide.State {
	for _, a := range acts {
		s, _ = guide.Reduce(s, a)
	}
	for int(s.CurrentStep) < guide.NumSteps {
		s, _ = guide.Reduce(s, guide.Advance{})
	}
	return s
}
