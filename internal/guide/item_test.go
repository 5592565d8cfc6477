package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleMaterial_TwiceRestoresSet(t *testing.T) {
	starts := [][]Material{
		nil,
		{MaterialPlastic},
		{MaterialGlass, MaterialBattery},
	}
	for _, start := range starts {
		for _, m := range Materials {
			d := ItemDescription{Materials: append([]Material(nil), start...)}
			require.True(t, d.ToggleMaterial(m))
			require.True(t, d.ToggleMaterial(m))
			assert.ElementsMatch(t, start, d.Materials, "material %s", m)
		}
	}
}

func TestToggleMaterial_NoDuplicates(t *testing.T) {
	var d ItemDescription
	d.ToggleMaterial(MaterialPaper)
	d.ToggleMaterial(MaterialGlass)
	d.ToggleMaterial(MaterialPaper)
	d.ToggleMaterial(MaterialPaper)
	assert.Equal(t, []Material{MaterialGlass, MaterialPaper}, d.Materials)
}

func TestToggleMaterial_InvalidIsNoop(t *testing.T) {
	d := ItemDescription{Materials: []Material{MaterialWood}}
	assert.False(t, d.ToggleMaterial(Material("Unobtainium")))
	assert.Equal(t, []Material{MaterialWood}, d.Materials)
}

func TestToggleMaterial_DoesNotAliasPreviousSlice(t *testing.T) {
	before := ItemDescription{Materials: []Material{MaterialWood, MaterialGlass}}
	after := before
	after.ToggleMaterial(MaterialWood)
	assert.Equal(t, []Material{MaterialWood, MaterialGlass}, before.Materials)
	assert.Equal(t, []Material{MaterialGlass}, after.Materials)
}

func TestSet_EnumFieldsRejectUnknownLabels(t *testing.T) {
	d := ItemDescription{Size: SizeSmall, Condition: ConditionCleanNew}

	assert.False(t, d.Set(FieldSize, "Huge"))
	assert.False(t, d.Set(FieldCondition, "Meh"))
	assert.Equal(t, SizeSmall, d.Size)
	assert.Equal(t, ConditionCleanNew, d.Condition)

	assert.True(t, d.Set(FieldSize, string(SizeLarge)))
	assert.True(t, d.Set(FieldCondition, ""))
	assert.Equal(t, SizeLarge, d.Size)
	assert.Equal(t, Condition(""), d.Condition)
}

func TestSet_FreeTextFields(t *testing.T) {
	var d ItemDescription
	fields := []Field{
		FieldItemName, FieldMaterialsOther, FieldPlasticType,
		FieldQuantity, FieldSpecialFeatures, FieldUserLocation,
	}
	for _, f := range fields {
		assert.True(t, d.Set(f, "value "+f.String()))
		assert.Equal(t, "value "+f.String(), d.Get(f))
	}
	assert.False(t, d.Set(Field(99), "x"))
}

func TestIsZero(t *testing.T) {
	assert.True(t, ItemDescription{}.IsZero())
	assert.True(t, ItemDescription{ItemName: "  "}.IsZero())
	assert.False(t, ItemDescription{Materials: []Material{MaterialOther}}.IsZero())
	assert.False(t, ItemDescription{UserLocation: "10001"}.IsZero())
}
