package harness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/record"
)

// DefaultTolerance bounds numeric comparisons when an assertion sets none.
const DefaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Field    string // Field that did not match
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Saved    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Saved items for context
	fmt.Fprintf(&buf, "\nSaved items: [%s]\n", strings.Join(e.Saved, ", "))
	return buf.String()
}

// EvaluateAssertions runs all assertions against the final record and
// returns error messages for failures. Every field of every assertion is
// checked; one failure does not stop the rest.
func EvaluateAssertions(view *engine.RecordView, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		for _, err := range evaluateAssertion(view, a) {
			errors = append(errors, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, err.Error()))
		}
	}
	return errors
}

func evaluateAssertion(view *engine.RecordView, a Assertion) []error {
	tol := a.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	var fields map[string]any
	label := a.Type
	switch a.Type {
	case AssertRecord:
		fields = recordFields(view)
	case AssertItem:
		label = "item " + a.Item
		res := view.Results[a.Item]
		if res == nil {
			return []error{&AssertionError{
				Type:     label,
				Expected: "stored result",
				Actual:   "item has no result",
				Saved:    view.SavedItems,
			}}
		}
		fields = itemFields(res)
	default:
		return []error{fmt.Errorf("unknown assertion type: %s", a.Type)}
	}

	var errs []error
	for _, key := range sortedKeys(a.Expect) {
		want := a.Expect[key]
		got, ok := fields[key]
		if !ok {
			errs = append(errs, &AssertionError{
				Type:     label,
				Field:    key,
				Expected: fmt.Sprintf("%v", want),
				Actual:   "field not present",
				Saved:    view.SavedItems,
			})
			continue
		}
		if !matchValue(want, got, tol) {
			errs = append(errs, &AssertionError{
				Type:     label,
				Field:    key,
				Expected: fmt.Sprintf("%v", want),
				Actual:   fmt.Sprintf("%v", got),
				Saved:    view.SavedItems,
			})
		}
	}
	return errs
}

// recordFields flattens the assertable fields of a record.
func recordFields(view *engine.RecordView) map[string]any {
	fields := map[string]any{
		"status":        string(view.Status),
		"sample_status": string(view.SampleStatus),
		"progress":      view.Progress,
		"saved_items":   stringsToAny(view.SavedItems),
		"batch_number":  view.BatchNumber,
		"version":       view.Version,
	}
	if view.OverallResult != nil {
		fields["overall_result"] = *view.OverallResult
	} else {
		fields["overall_result"] = nil
	}
	return fields
}

// itemFields flattens the assertable fields of an item result. Named
// values appear as variables.<name>, stages.<name> and final.<name>.
func itemFields(res *record.ItemResult) map[string]any {
	fields := map[string]any{
		"samples": sampleValues(res.Samples),
	}
	if res.Status != nil {
		fields["status"] = *res.Status
	} else {
		fields["status"] = nil
	}
	for _, nv := range res.VariableValues {
		fields["variables."+nv.Name] = nv.Value
	}
	for _, nv := range res.JointSettingFormulaValues {
		fields["stages."+nv.Name] = nv.Value
	}
	for _, nv := range res.FinalValues {
		fields["final."+nv.Name] = nv.Value
	}
	return fields
}

// matchValue compares an expected YAML value with an actual one. Numbers
// compare within tol regardless of their Go type; lists compare element
// by element.
func matchValue(want, got any, tol float64) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}

	if wl, ok := want.([]any); ok {
		gl, ok := got.([]any)
		if !ok || len(wl) != len(gl) {
			return false
		}
		for i := range wl {
			if !matchValue(wl[i], gl[i], tol) {
				return false
			}
		}
		return true
	}

	if isNumber(want) && isNumber(got) {
		w, _ := cast.ToFloat64E(want)
		g, _ := cast.ToFloat64E(got)
		return math.Abs(w-g) <= tol
	}

	switch w := want.(type) {
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case string:
		g, ok := got.(string)
		return ok && g == w
	}
	return false
}

// sampleValues presents samples the way scenarios write them: a number,
// a [before, after] pair, or a string.
func sampleValues(samples []record.Sample) []any {
	ordered := record.Ordered(samples)
	out := make([]any, len(ordered))
	for i, s := range ordered {
		switch v := s.Value.(type) {
		case record.SingleValue:
			out[i] = float64(v)
		case record.BeforeAfterValue:
			out[i] = []any{v.Before, v.After}
		case record.QualitativeValue:
			out[i] = string(v)
		}
	}
	return out
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64, uint64:
		return true
	}
	return false
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
