package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNameID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Thickness A", "thickness_a"},
		{"  Room   Temp ", "room_temp"},
		{"Épaisseur (mm)", "epaisseur_mm"},
		{"weight-kg", "weightkg"},
		{"__x__", "x"},
		{"a _ b", "a_b"},
		{"???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := GenerateNameID(tt.in)
			assert.Equal(t, tt.want, got)
			if got != "" {
				assert.True(t, ValidNameID(got))
			}
		})
	}
}

func TestValidNameID(t *testing.T) {
	assert.True(t, ValidNameID("thickness_a1"))
	assert.False(t, ValidNameID("Thickness"))
	assert.False(t, ValidNameID("a.b"))
	assert.False(t, ValidNameID(""))
}
