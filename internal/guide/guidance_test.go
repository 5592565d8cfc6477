package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuidanceValidate(t *testing.T) {
	var nilGuidance *Guidance
	assert.Error(t, nilGuidance.Validate())
	assert.Error(t, (&Guidance{Instructions: []string{"Rinse"}}).Validate())
	assert.Error(t, (&Guidance{Analysis: Analysis{Summary: "ok"}}).Validate())
	assert.Error(t, (&Guidance{Analysis: Analysis{Summary: "ok"}, Instructions: []string{" ", ""}}).Validate())
	assert.NoError(t, sampleGuidance().Validate())
}

func TestGuidanceNormalize(t *testing.T) {
	g := &Guidance{
		Analysis: Analysis{
			ItemType:         " Battery ",
			PrimaryMaterials: []string{"Lithium", " ", "Plastic "},
			Recyclability:    "Special handling",
			Summary:          " Hazardous waste. ",
		},
		Instructions: []string{"", "Tape the terminals", "  "},
		Tips:         []string{" "},
	}
	g.Normalize()

	assert.Equal(t, "Battery", g.Analysis.ItemType)
	assert.Equal(t, []string{"Lithium", "Plastic"}, g.Analysis.PrimaryMaterials)
	assert.Equal(t, RecyclabilitySpecialHandling, g.Analysis.Recyclability)
	assert.Equal(t, "Hazardous waste.", g.Analysis.Summary)
	assert.Equal(t, []string{"Tape the terminals"}, g.Instructions)
	assert.Nil(t, g.Tips)
}

func TestNormalizeRecyclability(t *testing.T) {
	cases := map[string]string{
		"recyclable":           RecyclabilityRecyclable,
		"Yes":                  RecyclabilityRecyclable,
		"partially-recyclable": RecyclabilityPartially,
		"NOT RECYCLABLE":       RecyclabilityNotRecyclable,
		"hazardous":            RecyclabilitySpecialHandling,
		"maybe?":               RecyclabilityUnknown,
		"":                     RecyclabilityUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRecyclability(in), in)
	}
}

func TestGuidanceMarkdown(t *testing.T) {
	g := sampleGuidance()
	g.Warnings = []string{"Remove the cap"}
	md := g.Markdown()

	assert.Contains(t, md, "# Recycling guidance")
	assert.Contains(t, md, "**Item:** Beverage bottle")
	assert.Contains(t, md, "♻️ Recyclable")
	assert.Contains(t, md, "1. Empty and rinse\n2. Put in plastic recycling\n")
	assert.Contains(t, md, "## Warnings\n\n- Remove the cap\n")
	assert.NotContains(t, md, "## Tips")
}
