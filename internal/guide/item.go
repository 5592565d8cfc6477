package guide

import (
	"fmt"
	"slices"
	"strings"
)

// Field identifies a single-valued field of ItemDescription. Materials are not
// a Field; they are changed with ToggleMaterial.
type Field int

const (
	FieldItemName Field = iota + 1
	FieldMaterialsOther
	FieldSize
	FieldCondition
	FieldPlasticType
	FieldQuantity
	FieldSpecialFeatures
	FieldUserLocation
)

// String returns a human-readable name for the Field.
func (f Field) String() string {
	switch f {
	case FieldItemName:
		return "ItemName"
	case FieldMaterialsOther:
		return "MaterialsOther"
	case FieldSize:
		return "Size"
	case FieldCondition:
		return "Condition"
	case FieldPlasticType:
		return "PlasticType"
	case FieldQuantity:
		return "Quantity"
	case FieldSpecialFeatures:
		return "SpecialFeatures"
	case FieldUserLocation:
		return "UserLocation"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ItemDescription is the in-progress form state describing one item.
type ItemDescription struct {
	ItemName        string
	Materials       []Material // insertion ordered, never contains duplicates
	MaterialsOther  string
	Size            Size
	Condition       Condition
	PlasticType     string
	Quantity        string
	SpecialFeatures string
	UserLocation    string
}

// Set updates one field. Free-text fields accept any value; Size and Condition
// only accept catalog labels (or empty). Returns false when nothing changed
// because the field or value was rejected.
func (d *ItemDescription) Set(field Field, value string) bool {
	switch field {
	case FieldItemName:
		d.ItemName = value
	case FieldMaterialsOther:
		d.MaterialsOther = value
	case FieldSize:
		s, err := ParseSize(value)
		if err != nil {
			return false
		}
		d.Size = s
	case FieldCondition:
		c, err := ParseCondition(value)
		if err != nil {
			return false
		}
		d.Condition = c
	case FieldPlasticType:
		d.PlasticType = value
	case FieldQuantity:
		d.Quantity = value
	case FieldSpecialFeatures:
		d.SpecialFeatures = value
	case FieldUserLocation:
		d.UserLocation = value
	default:
		return false
	}
	return true
}

// Get returns the current value of a single-valued field.
func (d ItemDescription) Get(field Field) string {
	switch field {
	case FieldItemName:
		return d.ItemName
	case FieldMaterialsOther:
		return d.MaterialsOther
	case FieldSize:
		return string(d.Size)
	case FieldCondition:
		return string(d.Condition)
	case FieldPlasticType:
		return d.PlasticType
	case FieldQuantity:
		return d.Quantity
	case FieldSpecialFeatures:
		return d.SpecialFeatures
	case FieldUserLocation:
		return d.UserLocation
	}
	return ""
}

// ToggleMaterial adds m if absent and removes it if present. Materials outside
// the catalog are ignored and false is returned.
func (d *ItemDescription) ToggleMaterial(m Material) bool {
	if !m.Valid() {
		return false
	}
	if i := slices.Index(d.Materials, m); i >= 0 {
		// Copy so earlier snapshots of the state keep their slice intact.
		d.Materials = slices.Delete(slices.Clone(d.Materials), i, i+1)
		return true
	}
	next := make([]Material, len(d.Materials), len(d.Materials)+1)
	copy(next, d.Materials)
	d.Materials = append(next, m)
	return true
}

func (d ItemDescription) HasMaterial(m Material) bool {
	return slices.Contains(d.Materials, m)
}

// IsZero reports whether every field is empty.
func (d ItemDescription) IsZero() bool {
	return len(d.Materials) == 0 &&
		strings.TrimSpace(d.ItemName) == "" &&
		strings.TrimSpace(d.MaterialsOther) == "" &&
		d.Size == "" &&
		d.Condition == "" &&
		strings.TrimSpace(d.PlasticType) == "" &&
		strings.TrimSpace(d.Quantity) == "" &&
		strings.TrimSpace(d.SpecialFeatures) == "" &&
		strings.TrimSpace(d.UserLocation) == ""
}
