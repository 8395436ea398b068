package canon

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_KeyOrder(t *testing.T) {
	got, err := Marshal(map[string]any{
		"single_value": 10.0,
		"sample_index": 1,
		"a":            true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":true,"sample_index":1,"single_value":10}`, string(got))
}

func TestMarshal_UTF16Ordering(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00, so it sorts before
	// U+E000 in UTF-16 even though it sorts after it in UTF-8.
	got, err := Marshal(map[string]any{"\ue000": 2, "\U0001F600": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\ue000\":2}", string(got))
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	got, err := Marshal("<a & b> ")
	require.NoError(t, err)
	assert.Equal(t, "\"<a & b> \"", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	got, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshal_Rejects(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
	_, err = Marshal(math.NaN())
	assert.Error(t, err)
	_, err = Marshal(map[string]any{"x": math.Inf(1)})
	assert.Error(t, err)
	_, err = Marshal(struct{}{})
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "10"},
		{math.Copysign(0, -1), "0"},
		{2.5, "2.5"},
		{-26.5, "-26.5"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{123456789012345680000, "123456789012345680000"},
	}
	for _, tt := range tests {
		got, err := FormatNumber(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestMarshal_IntAndFloatAgree(t *testing.T) {
	a, err := Marshal([]any{10, 10.0, json.Number("10")})
	require.NoError(t, err)
	assert.Equal(t, `[10,10,10]`, string(a))
}

type point struct{ x float64 }

func (p point) CanonicalValue() any { return map[string]any{"x": p.x} }

func TestMarshal_Valuer(t *testing.T) {
	got, err := Marshal([]any{point{1.25}})
	require.NoError(t, err)
	assert.Equal(t, `[{"x":1.25}]`, string(got))
}

func TestHash_DomainSeparation(t *testing.T) {
	v := map[string]any{"k": "v"}
	a := MustHash(DomainFootprint, v)
	b := MustHash(DomainDefinition, v)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, a, MustHash(DomainFootprint, map[string]any{"k": "v"}))
}
