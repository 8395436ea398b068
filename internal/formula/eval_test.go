package formula

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEnv() MapEnv {
	return MapEnv{
		Values: map[string]float64{
			"angle":           0.5,
			"radius":          4,
			"zero":            0,
			"room_temp.CROSS": 12,
		},
		Samples: map[string][]float64{
			"x": {30, 40, 10},
			"a": {30, 40, 10},
			"b": {25, 35, 15},
			"c": {28, 38, 12},
		},
	}
}

func evalText(t *testing.T, text string) float64 {
	t.Helper()
	f, err := ParseStage(text)
	require.NoError(t, err)
	v, err := f.Eval(sampleEnv())
	require.NoError(t, err)
	return v
}

// =============================================================================
// Aggregates
// =============================================================================

func TestEval_Aggregates(t *testing.T) {
	assert.InDelta(t, 26.667, evalText(t, "avg(x)"), 0.01)
	assert.Equal(t, 80.0, evalText(t, "sum(x)"))
	assert.Equal(t, 10.0, evalText(t, "min(x)"))
	assert.Equal(t, 40.0, evalText(t, "max(x)"))
	assert.Equal(t, 3.0, evalText(t, "count(x)"))
	assert.Equal(t, 30.0, evalText(t, "max(x)-min(x)"))
	assert.Equal(t, 30.0, evalText(t, "median(x)"))
	assert.InDelta(t, 15.275, evalText(t, "stdev(x)"), 0.001)
}

func TestEval_MultiItemComposition(t *testing.T) {
	v := evalText(t, "(avg(a)+avg(b)+avg(c))/3")
	assert.InDelta(t, 25.889, v, 0.01)
}

func TestEval_ScalarMinMax(t *testing.T) {
	assert.Equal(t, 2.0, evalText(t, "min(radius, 2, 3)"))
	assert.Equal(t, 4.0, evalText(t, "max(radius, 2)"))
}

// =============================================================================
// Scalars
// =============================================================================

func TestEval_Trigonometry(t *testing.T) {
	v := evalText(t, "sqrt(pow(sin(angle),2)+pow(cos(angle),2))*radius")
	assert.InDelta(t, 4.0, v, 1e-9)
}

func TestEval_Functions(t *testing.T) {
	tests := map[string]float64{
		"round(2.346, 2)":      2.35,
		"round(2.5)":           3,
		"abs(-3)":              3,
		"sign(-0.1)":           -1,
		"log(100, 10)":         2,
		"log10(1000)":          3,
		"ln(e())":              1,
		"deg2rad(180)":         math.Pi,
		"degrees(pi())":        180,
		"fmod(7, 3)":           1,
		"hypot(3, 4)":          5,
		"if(radius > 3, 1, 2)": 1,
		"7 % 4":                3,
		"2 ^ 10":               1024,
		"room_temp.CROSS + 1":  13,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.InDelta(t, want, evalText(t, in), 1e-9)
		})
	}
}

func TestEval_IfIsLazy(t *testing.T) {
	// The untaken branch divides by zero.
	assert.Equal(t, 1.0, evalText(t, "if(1, 1, 1/zero)"))
}

// =============================================================================
// Failures
// =============================================================================

func TestEval_DivisionByZero(t *testing.T) {
	f := MustParseStage("radius / zero")
	_, err := f.Eval(sampleEnv())
	require.Error(t, err)

	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "radius / zero", ee.Formula)
	assert.Contains(t, ee.Message, "division by zero")
}

func TestEval_NonFinite(t *testing.T) {
	for _, in := range []string{"sqrt(0 - 1)", "ln(zero)", "fmod(1, zero)"} {
		_, err := MustParseStage(in).Eval(sampleEnv())
		assert.True(t, IsEvalError(err), in)
	}
}

func TestEval_IntermediateOverflow(t *testing.T) {
	for _, in := range []string{"1/(1e308*10)", "0*(1e308*10)", "1/exp(1000)", "if(1e308*10 > 0, 1, 2)"} {
		_, err := MustParseStage(in).Eval(MapEnv{})
		require.Error(t, err, in)
		var ee *EvalError
		require.ErrorAs(t, err, &ee, in)
		assert.Contains(t, ee.Message, "non-finite", in)
	}
}

func TestEval_MissingData(t *testing.T) {
	_, err := MustParseStage("avg(thickness_z) + 1").Eval(sampleEnv())
	require.Error(t, err)

	var me *MissingDataError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "thickness_z", me.Item)
	assert.False(t, IsEvalError(err))
}

func TestEval_AggregateNeedsReference(t *testing.T) {
	_, err := MustParseStage("avg(radius * 2)").Eval(sampleEnv())
	assert.True(t, IsEvalError(err))
}

func TestEval_EmptySeries(t *testing.T) {
	env := MapEnv{Samples: map[string][]float64{"x": {}}}
	_, err := MustParseStage("avg(x)").Eval(env)
	assert.True(t, IsEvalError(err))

	v, err := MustParseStage("count(x)").Eval(env)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestFunctions_Catalogue(t *testing.T) {
	names := Functions()
	for _, want := range []string{"avg", "sum", "min", "max", "count", "sin", "cos", "sqrt", "pow"} {
		assert.Contains(t, names, want)
	}
	_, ok := Lookup("AVG")
	assert.True(t, ok)
	assert.True(t, IsAggregateCall("max", 1))
	assert.False(t, IsAggregateCall("max", 2))
	assert.False(t, IsAggregateCall("sqrt", 1))
}
