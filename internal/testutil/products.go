package testutil

import (
	"testing"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// Between returns a BETWEEN rule in millimetres.
func Between(value, minus, plus float64) *product.RuleSetting {
	return &product.RuleSetting{Rule: "BETWEEN", Value: &value, Unit: "mm", ToleranceMinus: &minus, TolerancePlus: &plus}
}

// RawPoint is a MANUAL SINGLE item judged per sample on raw values,
// passing between 5 and 45.
func RawPoint(nameID string, samples int) product.Point {
	return product.Point{
		Setup: product.Setup{
			Name: nameID, NameID: nameID, SampleAmount: samples,
			Source: "MANUAL", Type: "SINGLE", Nature: "QUANTITATIVE",
		},
		EvaluationType:        "PER_SAMPLE",
		EvaluationSetting:     &product.EvaluationSetting{PerSampleSetting: &product.PerSampleSetting{IsRawData: true}},
		RuleEvaluationSetting: Between(25, 20, 20),
	}
}

// JointPoint is a JOINT item. samples 0 makes it auto-calculated.
func JointPoint(nameID string, samples int, stages ...product.JointFormulaSpec) product.Point {
	return product.Point{
		Setup: product.Setup{
			Name: nameID, NameID: nameID, SampleAmount: samples,
			Source: "MANUAL", Type: "SINGLE", Nature: "QUANTITATIVE",
		},
		EvaluationType:        "JOINT",
		EvaluationSetting:     &product.EvaluationSetting{JointSetting: &product.JointSetting{Formulas: stages}},
		RuleEvaluationSetting: Between(60, 40, 40),
	}
}

// Stage is a joint formula spec.
func Stage(name, formula string, final bool) product.JointFormulaSpec {
	return product.JointFormulaSpec{Name: name, Formula: formula, IsFinalValue: final}
}

// WithVariable appends a FORMULA variable.
func WithVariable(p product.Point, name, formula string) product.Point {
	p.Variables = append(p.Variables, product.VariableSpec{Type: "FORMULA", Name: name, Formula: formula, IsShow: true})
	return p
}

// DerivedPoint copies its samples from an earlier item.
func DerivedPoint(nameID, from string, samples int) product.Point {
	p := RawPoint(nameID, samples)
	p.Setup.Source = "DERIVED"
	p.Setup.SourceDerivedNameID = from
	return p
}

// QualitativePoint offers OK and NG.
func QualitativePoint(nameID string) product.Point {
	return product.Point{
		Setup: product.Setup{
			Name: nameID, NameID: nameID, SampleAmount: 1,
			Source: "MANUAL", Type: "SINGLE", Nature: "QUALITATIVE",
		},
		EvaluationType: "SKIP_CHECK",
		EvaluationSetting: &product.EvaluationSetting{QualitativeSetting: &product.QualitativeSetting{
			Label: "Surface", Options: []string{"OK", "NG"}, PassingCriteria: "OK",
		}},
	}
}

// BeforeAfterPoint judges after-before per sample, passing within 0 +/- 1.
func BeforeAfterPoint(nameID string, samples int) product.Point {
	return product.Point{
		Setup: product.Setup{
			Name: nameID, NameID: nameID, SampleAmount: samples,
			Source: "MANUAL", Type: "BEFORE_AFTER", Nature: "QUANTITATIVE",
		},
		PreProcessingFormulas: []product.FormulaSpec{{Name: "delta", Formula: "=after-before", IsShow: true}},
		EvaluationType:        "PER_SAMPLE",
		EvaluationSetting:     &product.EvaluationSetting{PerSampleSetting: &product.PerSampleSetting{PreProcessingFormulaName: "delta"}},
		RuleEvaluationSetting: Between(0, 1, 1),
	}
}

// ChainPoints is a product whose items depend on each other in a chain:
//
//	thickness_a, thickness_b, thickness_c -> room_temp -> final_temp -> fix_temp
//
// fix_temp is auto-calculated from the variables of room_temp and
// final_temp.
func ChainPoints() []product.Point {
	return []product.Point{
		RawPoint("thickness_a", 3),
		RawPoint("thickness_b", 3),
		RawPoint("thickness_c", 3),
		WithVariable(RawPoint("room_temp", 3), "CROSS_SECTION", "=(avg(thickness_a)+avg(thickness_b)+avg(thickness_c))/3"),
		WithVariable(RawPoint("final_temp", 3), "FINAL_AVG", "=(room_temp.CROSS_SECTION+avg(thickness_b))/2"),
		JointPoint("fix_temp", 0, Stage("total", "room_temp.CROSS_SECTION + final_temp.FINAL_AVG + 10", true)),
	}
}

// MustDefinition validates points or fails the test.
func MustDefinition(t testing.TB, points []product.Point) *product.Definition {
	t.Helper()
	def, err := product.Validate(points)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return def
}

// Singles builds SINGLE samples indexed from 1.
func Singles(values ...float64) []record.Sample {
	out := make([]record.Sample, len(values))
	for i, v := range values {
		out[i] = record.Sample{Index: i + 1, Value: record.SingleValue(v)}
	}
	return out
}

// BeforeAfter builds BEFORE_AFTER samples from before/after pairs.
func BeforeAfter(pairs ...[2]float64) []record.Sample {
	out := make([]record.Sample, len(pairs))
	for i, p := range pairs {
		out[i] = record.Sample{Index: i + 1, Value: record.BeforeAfterValue{Before: p[0], After: p[1]}}
	}
	return out
}
