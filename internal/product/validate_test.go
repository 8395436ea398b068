package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Valid definitions
// =============================================================================

func TestValidate_Chain(t *testing.T) {
	def, err := Validate(chainPoints())
	require.NoError(t, err)

	assert.Equal(t, []string{"thickness_a", "thickness_b", "thickness_c", "room_temp", "final_temp", "fix_temp"}, def.NameIDs())
	assert.NotEmpty(t, def.Version)

	room, ok := def.Item("room_temp")
	require.True(t, ok)
	require.Len(t, room.Variables, 1)
	assert.Equal(t, "(avg(thickness_a)+avg(thickness_b)+avg(thickness_c))/3", room.Variables[0].Formula.Normalized)

	fix, ok := def.Item("fix_temp")
	require.True(t, ok)
	assert.Equal(t, EvalJoint, fix.EvaluationType())
	assert.True(t, fix.IsAutoCalculated())
	assert.False(t, fix.IsRawInput())
}

func TestValidate_GeneratesNameID(t *testing.T) {
	p := rawPoint("", 3)
	p.Setup.Name = "Thickness A"

	def, err := Validate([]Point{p})
	require.NoError(t, err)
	assert.Equal(t, "thickness_a", def.Items[0].NameID)
	assert.Equal(t, "Thickness A", def.Items[0].Name)
}

func TestValidate_NormalizesFunctionNames(t *testing.T) {
	points := []Point{
		rawPoint("x", 3),
		withFormula(rawPoint("y", 3), "combined", "=AVG(x)+SIN(x)"),
	}

	def, err := Validate(points)
	require.NoError(t, err)
	got := def.Items[1].Variables[0].Formula.Normalized
	assert.Contains(t, got, "avg(x)")
	assert.Contains(t, got, "sin(x)")
	assert.NotContains(t, got, "=")
	assert.NotContains(t, got, "AVG")
}

func TestValidate_LocalVariablesChainInOrder(t *testing.T) {
	p := rawPoint("a", 3)
	p = withFormula(p, "first", "=avg(x)*2")
	p = withFormula(p, "second", "=first+1")

	_, err := Validate([]Point{rawPoint("x", 3), p})
	require.NoError(t, err)
}

func TestValidate_DerivedSource(t *testing.T) {
	derived := rawPoint("copy", 3)
	derived.Setup.Source = "DERIVED"
	derived.Setup.SourceDerivedNameID = "origin"

	def, err := Validate([]Point{rawPoint("origin", 3), derived})
	require.NoError(t, err)

	it, _ := def.Item("copy")
	assert.Equal(t, Derived{From: "origin"}, it.Source)
	assert.False(t, it.IsRawInput())
	assert.Equal(t, []string{"origin"}, def.Graph().Dependencies("copy"))
}

func TestValidate_Qualitative(t *testing.T) {
	def, err := Validate([]Point{qualitativePoint("visual")})
	require.NoError(t, err)

	it := def.Items[0]
	q, ok := it.Nature.(*Qualitative)
	require.True(t, ok)
	assert.Equal(t, EvalSkipCheck, it.EvaluationType())
	assert.Nil(t, it.Rule())
	assert.True(t, q.HasOption("NG"))
	assert.Nil(t, it.SampleNames())
}

func TestValidate_BeforeAfter(t *testing.T) {
	def, err := Validate([]Point{beforeAfterPoint("shrink")})
	require.NoError(t, err)

	it := def.Items[0]
	assert.Equal(t, []string{"before", "after"}, it.SampleNames())
	ps, ok := it.Evaluation().(*PerSample)
	require.True(t, ok)
	assert.Equal(t, "delta", ps.PreProcessing)
}

func TestValidate_JointSeriesAggregated(t *testing.T) {
	p := jointPoint("spread", "max(single_value) - min(single_value)")
	p.Setup.SampleAmount = 3

	_, err := Validate([]Point{p})
	require.NoError(t, err)
}

// =============================================================================
// Unresolved references
// =============================================================================

func TestValidate_UndefinedReferenceNamed(t *testing.T) {
	points := []Point{
		rawPoint("thickness_a", 3),
		withFormula(rawPoint("cross", 3), "sum_ab", "=avg(thickness_a) + avg(thickness_b)"),
	}

	_, err := Validate(points)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thickness_b")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"thickness_b"}, ve.Unresolved())
	require.Len(t, ve.Issues, 1)
	assert.Equal(t, ErrUndefinedReference, ve.Issues[0].Code)
	assert.Equal(t, "cross", ve.Issues[0].NameID)

	// Declaring the name earlier fixes it.
	fixed := append([]Point{rawPoint("thickness_b", 3)}, points...)
	_, err = Validate(fixed)
	require.NoError(t, err)
}

func TestValidate_ReportsAllUnresolvedAtOnce(t *testing.T) {
	points := []Point{
		withFormula(rawPoint("one", 3), "v", "=avg(ghost_2)"),
		withFormula(rawPoint("two", 3), "v", "=avg(ghost_1) + ghost_2"),
	}

	_, err := Validate(points)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"ghost_1", "ghost_2"}, ve.Unresolved())
	assert.Len(t, ve.ByItem()["two"], 2)
	assert.Contains(t, err.Error(), "ghost_1")
	assert.Contains(t, err.Error(), "ghost_2")
}

func TestValidate_LaterLocalVariableNotInScope(t *testing.T) {
	p := rawPoint("a", 3)
	p = withFormula(p, "first", "=second+1")
	p = withFormula(p, "second", "=1")

	_, err := Validate([]Point{p})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"second"}, ve.Unresolved())
}

func TestValidate_UnknownDotField(t *testing.T) {
	points := []Point{
		withFormula(rawPoint("a", 3), "v", "=avg(a_raw)"),
		withFormula(rawPoint("b", 3), "w", "=a.nope"),
	}
	points = append([]Point{rawPoint("a_raw", 3)}, points...)

	_, err := Validate(points)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Issues, 1)
	assert.Equal(t, "a.nope", ve.Issues[0].Reference)
}

// =============================================================================
// Forward and self references
// =============================================================================

func TestValidate_ForwardReferenceRejected(t *testing.T) {
	points := []Point{
		withFormula(rawPoint("early", 3), "v", "=avg(late)"),
		rawPoint("late", 3),
	}

	_, err := Validate(points)
	require.Error(t, err)
	assert.Equal(t, []string{ErrForwardReference}, issueCodes(err))
	assert.Contains(t, err.Error(), "late")

	// Reversing the order makes it valid.
	_, err = Validate([]Point{points[1], points[0]})
	require.NoError(t, err)
}

func TestValidate_SelfReferenceRejected(t *testing.T) {
	_, err := Validate([]Point{withFormula(rawPoint("loop", 3), "v", "=avg(loop)")})
	require.Error(t, err)
	assert.Equal(t, []string{ErrForwardReference}, issueCodes(err))
	assert.Contains(t, err.Error(), "itself")
}

func TestValidate_DerivedForwardSourceRejected(t *testing.T) {
	derived := rawPoint("copy", 3)
	derived.Setup.Source = "DERIVED"
	derived.Setup.SourceDerivedNameID = "origin"

	_, err := Validate([]Point{derived, rawPoint("origin", 3)})
	require.Error(t, err)
	assert.Equal(t, []string{ErrForwardReference}, issueCodes(err))
}

// =============================================================================
// Aggregates
// =============================================================================

func TestValidate_AggregateRequiresBareReference(t *testing.T) {
	points := []Point{
		rawPoint("a", 3),
		withFormula(rawPoint("b", 3), "v", "=avg(a*2)"),
	}

	_, err := Validate(points)
	require.Error(t, err)
	assert.Contains(t, issueCodes(err), ErrAggregateArgument)
}

func TestValidate_AggregateOverScalarVariable(t *testing.T) {
	p := rawPoint("b", 3)
	p = withFormula(p, "k", "=2")
	p = withFormula(p, "v", "=sum(k)")

	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrAggregateArgument}, issueCodes(err))
}

func TestValidate_AggregateOverQualitativeItem(t *testing.T) {
	points := []Point{
		qualitativePoint("visual"),
		withFormula(rawPoint("b", 3), "v", "=count(visual)"),
	}

	_, err := Validate(points)
	assert.Equal(t, []string{ErrAggregateArgument}, issueCodes(err))
}

func TestValidate_JointSeriesAsScalarRejected(t *testing.T) {
	p := jointPoint("spread", "single_value * 2")
	p.Setup.SampleAmount = 3

	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrSeriesAsScalar}, issueCodes(err))
}

// =============================================================================
// Syntax and structure
// =============================================================================

func TestValidate_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		formula string
	}{
		{"missing prefix", "avg(x)"},
		{"unterminated parenthesis", "=avg(x"},
		{"unknown function", "=frobnicate(x)"},
		{"empty call", "=avg()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]Point{rawPoint("x", 3), withFormula(rawPoint("y", 3), "v", tt.formula)})
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasSyntaxErrors())
			assert.Equal(t, []string{ErrFormulaSyntax}, issueCodes(err))
		})
	}
}

func TestValidate_DuplicateNameID(t *testing.T) {
	_, err := Validate([]Point{rawPoint("a", 3), rawPoint("a", 3)})
	assert.Equal(t, []string{ErrDuplicateName}, issueCodes(err))
}

func TestValidate_LocalNameCollidesWithItem(t *testing.T) {
	p := withFormula(rawPoint("b", 3), "a", "=1")
	_, err := Validate([]Point{rawPoint("a", 3), p})
	assert.Equal(t, []string{ErrDuplicateName}, issueCodes(err))
}

func TestValidate_Empty(t *testing.T) {
	_, err := Validate(nil)
	assert.Equal(t, []string{ErrRequiredField}, issueCodes(err))
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name string
		rule *RuleSetting
		code string
	}{
		{"unknown rule", &RuleSetting{Rule: "ABOUT", Value: f64(1), Unit: "mm"}, ErrInvalidRule},
		{"between without tolerance", &RuleSetting{Rule: "BETWEEN", Value: f64(1), Unit: "mm"}, ErrInvalidRule},
		{"min with tolerance", &RuleSetting{Rule: "MIN", Value: f64(1), Unit: "mm", TolerancePlus: f64(1)}, ErrInvalidRule},
		{"negative tolerance", between(1, -1, 1), ErrInvalidRule},
		{"missing value", &RuleSetting{Rule: "MAX", Unit: "mm"}, ErrRequiredField},
		{"missing unit", &RuleSetting{Rule: "MAX", Value: f64(1)}, ErrRequiredField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := rawPoint("a", 3)
			p.RuleEvaluationSetting = tt.rule
			_, err := Validate([]Point{p})
			assert.Equal(t, []string{tt.code}, issueCodes(err))
		})
	}
}

func TestValidate_RuleRequiredUnlessSkipCheck(t *testing.T) {
	p := rawPoint("a", 3)
	p.RuleEvaluationSetting = nil
	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrRequiredField}, issueCodes(err))

	p.EvaluationType = "SKIP_CHECK"
	p.EvaluationSetting = nil
	_, err = Validate([]Point{p})
	assert.NoError(t, err)
}

func TestValidate_QualitativeConstraints(t *testing.T) {
	p := qualitativePoint("visual")
	p.RuleEvaluationSetting = between(1, 1, 1)
	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrInvalidSetting}, issueCodes(err))

	p = qualitativePoint("visual")
	p.EvaluationSetting.QualitativeSetting.PassingCriteria = "MAYBE"
	_, err = Validate([]Point{p})
	assert.Equal(t, []string{ErrInvalidValue}, issueCodes(err))
}

func TestValidate_BeforeAfterNeedsPreProcessing(t *testing.T) {
	p := rawPoint("shrink", 3)
	p.Setup.Type = "BEFORE_AFTER"

	_, err := Validate([]Point{p})
	codes := issueCodes(err)
	assert.Contains(t, codes, ErrInvalidSetting)
	assert.Len(t, codes, 2) // raw data on BEFORE_AFTER, and no pre-processing
}

func TestValidate_AutoCalculatedOnlyForJoint(t *testing.T) {
	p := rawPoint("a", 0)
	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrInvalidSetting}, issueCodes(err))
}

func TestValidate_JointNeedsFinalStage(t *testing.T) {
	p := jointPoint("j", "1+1")
	p.EvaluationSetting.JointSetting.Formulas[0].IsFinalValue = false
	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrInvalidSetting}, issueCodes(err))
}

func TestValidate_SourceFields(t *testing.T) {
	p := rawPoint("a", 3)
	p.Setup.Source = "INSTRUMENT"
	_, err := Validate([]Point{p})
	assert.Equal(t, []string{ErrRequiredField}, issueCodes(err))

	p.Setup.SourceInstrumentID = "caliper-7"
	def, err := Validate([]Point{p})
	require.NoError(t, err)
	assert.Equal(t, Instrument{InstrumentID: "caliper-7"}, def.Items[0].Source)
	assert.True(t, def.Items[0].IsRawInput())

	p.Setup.Source = "TOOL"
	_, err = Validate([]Point{p})
	assert.Equal(t, []string{ErrRequiredField}, issueCodes(err))
}

// =============================================================================
// Stored form
// =============================================================================

func TestDefinition_JSONRoundTrip(t *testing.T) {
	points := append(chainPoints(), qualitativePoint("visual"), beforeAfterPoint("shrink"))
	def, err := Validate(points)
	require.NoError(t, err)

	data, err := def.MarshalJSON()
	require.NoError(t, err)

	var back Definition
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, def.Version, back.Version)
	assert.Equal(t, def.NameIDs(), back.NameIDs())
	assert.Equal(t, def.Graph().Edges(), back.Graph().Edges())
}

func TestDefinition_VersionTracksContent(t *testing.T) {
	a, err := Validate(chainPoints())
	require.NoError(t, err)
	b, err := Validate(chainPoints())
	require.NoError(t, err)
	assert.Equal(t, a.Version, b.Version)

	changed := chainPoints()
	changed[0].RuleEvaluationSetting = between(30, 1, 1)
	c, err := Validate(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a.Version, c.Version)
}

func qualitativePoint(nameID string) Point {
	return Point{
		Setup:          Setup{Name: nameID, NameID: nameID, SampleAmount: 1, Source: "MANUAL", Type: "SINGLE", Nature: "QUALITATIVE"},
		EvaluationType: "SKIP_CHECK",
		EvaluationSetting: &EvaluationSetting{QualitativeSetting: &QualitativeSetting{
			Label:           "Surface",
			Options:         []string{"OK", "NG"},
			PassingCriteria: "OK",
		}},
	}
}

func beforeAfterPoint(nameID string) Point {
	return Point{
		Setup:                 Setup{Name: nameID, NameID: nameID, SampleAmount: 2, Source: "MANUAL", Type: "BEFORE_AFTER", Nature: "QUANTITATIVE"},
		PreProcessingFormulas: []FormulaSpec{{Name: "delta", Formula: "=after-before", IsShow: true}},
		EvaluationType:        "PER_SAMPLE",
		EvaluationSetting:     &EvaluationSetting{PerSampleSetting: &PerSampleSetting{IsRawData: false, PreProcessingFormulaName: "delta"}},
		RuleEvaluationSetting: between(0, 1, 1),
	}
}
