package guide

import "fmt"

// Material is one entry of the fixed material catalog. The value is also the
// label used in the assembled description.
type Material string

const (
	MaterialPlastic     Material = "Plastic"
	MaterialPaper       Material = "Paper/Cardboard"
	MaterialGlass       Material = "Glass"
	MaterialAluminum    Material = "Metal (Aluminum)"
	MaterialMetalOther  Material = "Metal (Other)"
	MaterialElectronics Material = "Electronics"
	MaterialBattery     Material = "Battery"
	MaterialTextile     Material = "Fabric/Textile"
	MaterialWood        Material = "Wood"
	MaterialRubber      Material = "Rubber"
	MaterialMixed       Material = "Mixed Materials"
	MaterialOther       Material = "Other"
)

// Materials is the material catalog in display order. It is the single source
// of truth for validation and for building pickers.
var Materials = []Material{
	MaterialPlastic,
	MaterialPaper,
	MaterialGlass,
	MaterialAluminum,
	MaterialMetalOther,
	MaterialElectronics,
	MaterialBattery,
	MaterialTextile,
	MaterialWood,
	MaterialRubber,
	MaterialMixed,
	MaterialOther,
}

// Valid reports whether m is part of the catalog.
func (m Material) Valid() bool {
	for _, c := range Materials {
		if c == m {
			return true
		}
	}
	return false
}

// MaterialAt returns the catalog entry at index i. Used to decode compact
// picker identifiers.
func MaterialAt(i int) (Material, bool) {
	if i < 0 || i >= len(Materials) {
		return "", false
	}
	return Materials[i], true
}

// Size is the approximate physical size of the item.
type Size string

const (
	SizeSmall      Size = "Small (fits in hand)"
	SizeMedium     Size = "Medium (size of a book)"
	SizeLarge      Size = "Large (size of a box)"
	SizeExtraLarge Size = "Extra Large (furniture size)"
)

// Sizes is ordered from smallest to largest.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge}

func (s Size) Valid() bool {
	for _, c := range Sizes {
		if c == s {
			return true
		}
	}
	return false
}

// Condition describes the state the item is in.
type Condition string

const (
	ConditionCleanNew     Condition = "Clean/New"
	ConditionSlightlyDirt Condition = "Slightly dirty"
	ConditionContaminated Condition = "Very dirty/contaminated"
	ConditionBrokenIntact Condition = "Broken but intact"
	ConditionBrokenPieces Condition = "Broken into pieces"
	ConditionFunctional   Condition = "Still functional"
)

var Conditions = []Condition{
	ConditionCleanNew,
	ConditionSlightlyDirt,
	ConditionContaminated,
	ConditionBrokenIntact,
	ConditionBrokenPieces,
	ConditionFunctional,
}

func (c Condition) Valid() bool {
	for _, v := range Conditions {
		if v == c {
			return true
		}
	}
	return false
}

// ParseSize accepts an exact catalog label. The empty string is accepted and
// clears the optional field.
func ParseSize(label string) (Size, error) {
	if label == "" {
		return "", nil
	}
	s := Size(label)
	if !s.Valid() {
		return "", fmt.Errorf("unknown size %q", label)
	}
	return s, nil
}

// ParseCondition accepts an exact catalog label or the empty string.
func ParseCondition(label string) (Condition, error) {
	if label == "" {
		return "", nil
	}
	c := Condition(label)
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition %q", label)
	}
	return c, nil
}
