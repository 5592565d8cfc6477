package guide

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		name    string
		item    ItemDescription
		wantMsg string
	}{
		{
			name:    "empty form",
			item:    ItemDescription{},
			wantMsg: MsgItemNameRequired,
		},
		{
			name:    "blank name with everything else",
			item:    ItemDescription{ItemName: "   ", Materials: []Material{MaterialGlass}, Quantity: "3", UserLocation: "10001"},
			wantMsg: MsgItemNameRequired,
		},
		{
			name:    "name without materials",
			item:    ItemDescription{ItemName: "Bottle", Size: SizeSmall, MaterialsOther: "cork"},
			wantMsg: MsgMaterialsRequired,
		},
		{
			name: "name and material",
			item: ItemDescription{ItemName: "Bottle", Materials: []Material{MaterialPlastic}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanSubmit(tt.item)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMsg, verr.Message)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestCanSubmit_EmptyNameAlwaysWins(t *testing.T) {
	for _, m := range Materials {
		for _, size := range append([]Size{""}, Sizes...) {
			item := ItemDescription{Materials: []Material{m}, Size: size}
			err := CanSubmit(item)
			require.Error(t, err)
			assert.Equal(t, MsgItemNameRequired, err.Error())
		}
	}
}
