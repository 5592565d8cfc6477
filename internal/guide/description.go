package guide

import (
	"strings"
)

// BuildDescription turns the form into the text block sent to the guidance
// provider. One field per line in a fixed order; empty fields are omitted.
func BuildDescription(d ItemDescription) string {
	var lines []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			lines = append(lines, label+": "+v)
		}
	}

	add("Item", d.ItemName)

	if len(d.Materials) > 0 {
		names := make([]string, len(d.Materials))
		for i, m := range d.Materials {
			names[i] = string(m)
		}
		line := "Materials: " + strings.Join(names, ", ")
		if other := strings.TrimSpace(d.MaterialsOther); other != "" {
			line += " (" + other + ")"
		}
		lines = append(lines, line)
	}

	add("Plastic type/recycling code", d.PlasticType)
	add("Size", string(d.Size))
	add("Condition", string(d.Condition))
	add("Quantity", d.Quantity)
	add("Special features/concerns", d.SpecialFeatures)
	add("User Location", d.UserLocation)

	return strings.Join(lines, "\n")
}
