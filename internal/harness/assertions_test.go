package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/record"
)

func boolPtr(b bool) *bool { return &b }

// testView builds a record view with one judged joint item and one raw
// item.
func testView() *engine.RecordView {
	rec := record.New("rec-0001", "bracket", "v1", time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	rec.Status = record.StatusInProgress
	rec.BatchNumber = "B-001"
	rec.OverallResult = boolPtr(true)
	rec.Results["thickness_a"] = &record.ItemResult{
		NameID: "thickness_a",
		Status: boolPtr(true),
		Samples: []record.Sample{
			{Index: 2, Value: record.SingleValue(40)},
			{Index: 1, Value: record.SingleValue(30)},
		},
	}
	rec.Results["room_temp"] = &record.ItemResult{
		NameID:         "room_temp",
		Status:         boolPtr(true),
		Samples:        []record.Sample{{Index: 1, Value: record.BeforeAfterValue{Before: 20, After: 21}}},
		VariableValues: []record.NamedValue{{Name: "CROSS_SECTION", Value: 25.888888}},
	}
	rec.Results["fix_temp"] = &record.ItemResult{
		NameID:                    "fix_temp",
		JointSettingFormulaValues: []record.NamedValue{{Name: "total", Value: 61.333333}},
		FinalValues:               []record.NamedValue{{Name: "total", Value: 61.333333}},
	}
	return &engine.RecordView{
		Record:          rec,
		Progress:        50,
		SavedItems:      []string{"fix_temp", "room_temp", "thickness_a"},
		TotalSavedItems: 3,
		TotalItems:      6,
	}
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertRecord, Expect: map[string]any{
			"status":         "IN_PROGRESS",
			"progress":       50,
			"overall_result": true,
			"saved_items":    []any{"fix_temp", "room_temp", "thickness_a"},
			"batch_number":   "B-001",
		}},
		{Type: AssertItem, Item: "thickness_a", Expect: map[string]any{
			"status":  true,
			"samples": []any{30, 40},
		}},
		{Type: AssertItem, Item: "room_temp", Tolerance: 0.001, Expect: map[string]any{
			"samples":                 []any{[]any{20, 21}},
			"variables.CROSS_SECTION": 25.8889,
		}},
		{Type: AssertItem, Item: "fix_temp", Tolerance: 0.001, Expect: map[string]any{
			"status":       nil,
			"stages.total": 61.3333,
			"final.total":  61.3333,
		}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertRecord, Expect: map[string]any{"status": "COMPLETED"}},
		{Type: AssertRecord, Expect: map[string]any{"status": "IN_PROGRESS"}},
		{Type: AssertItem, Item: "thickness_a", Expect: map[string]any{"samples": []any{30}}},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 0 (record)")
	assert.Contains(t, errs[1], "assertion 2 (item)")
}

func TestEvaluateAssertions_ReportsEveryField(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertRecord, Expect: map[string]any{"status": "TODO", "progress": 10}},
	})
	assert.Len(t, errs, 2)
}

func TestEvaluateAssertions_DefaultToleranceIsTight(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertItem, Item: "room_temp", Expect: map[string]any{"variables.CROSS_SECTION": 25.8889}},
	})
	assert.Len(t, errs, 1)
}

func TestEvaluateAssertions_MissingItem(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertItem, Item: "final_temp", Expect: map[string]any{"status": true}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "item has no result")
}

func TestEvaluateAssertions_MissingField(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{
		{Type: AssertItem, Item: "thickness_a", Expect: map[string]any{"variables.NOPE": 1}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "field not present")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(testView(), []Assertion{{Type: "trace_contains"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown assertion type")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     "item room_temp",
		Field:    "status",
		Expected: "true",
		Actual:   "false",
		Saved:    []string{"room_temp", "thickness_a"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: item room_temp status")
	assert.Contains(t, msg, "Expected: true")
	assert.Contains(t, msg, "Actual: false")
	assert.Contains(t, msg, "Saved items: [room_temp, thickness_a]")
}

func TestMatchValue(t *testing.T) {
	tests := []struct {
		name string
		want any
		got  any
		tol  float64
		ok   bool
	}{
		{"int vs float", 100, 100.0, DefaultTolerance, true},
		{"int64 vs float", int64(3), 3.0, DefaultTolerance, true},
		{"within tolerance", 25.8889, 25.888888, 0.001, true},
		{"outside tolerance", 25.9, 25.888888, 0.001, false},
		{"strings", "OK", "OK", DefaultTolerance, true},
		{"string vs number", "1", 1.0, DefaultTolerance, false},
		{"bools", true, true, DefaultTolerance, true},
		{"bool mismatch", true, false, DefaultTolerance, false},
		{"nil vs nil", nil, nil, DefaultTolerance, true},
		{"nil vs value", nil, true, DefaultTolerance, false},
		{"value vs nil", false, nil, DefaultTolerance, false},
		{"lists", []any{1, "a"}, []any{1.0, "a"}, DefaultTolerance, true},
		{"list length", []any{1}, []any{1.0, 2.0}, DefaultTolerance, false},
		{"list vs scalar", []any{1}, 1.0, DefaultTolerance, false},
		{"nested pair", []any{[]any{1, 2}}, []any{[]any{1.0, 2.0}}, DefaultTolerance, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, matchValue(tt.want, tt.got, tt.tol))
		})
	}
}

func TestSampleValues(t *testing.T) {
	got := sampleValues([]record.Sample{
		{Index: 3, Value: record.QualitativeValue("scratched")},
		{Index: 1, Value: record.SingleValue(1.5)},
		{Index: 2, Value: record.BeforeAfterValue{Before: 1, After: 2}},
	})
	assert.Equal(t, []any{1.5, []any{1.0, 2.0}, "scratched"}, got)
}
