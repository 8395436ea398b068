package record

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"
)

// ValueKind names the shape of one raw sample.
type ValueKind string

const (
	KindSingle      ValueKind = "single_value"
	KindBeforeAfter ValueKind = "before_after_value"
	KindQualitative ValueKind = "qualitative_value"
)

// Value is one of SingleValue, BeforeAfterValue or QualitativeValue.
type Value interface {
	Kind() ValueKind
	canonical() any
}

// SingleValue is a SINGLE sample.
type SingleValue float64

// BeforeAfterValue is a BEFORE_AFTER sample.
type BeforeAfterValue struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// QualitativeValue is the option chosen for a QUALITATIVE sample.
type QualitativeValue string

func (SingleValue) Kind() ValueKind      { return KindSingle }
func (BeforeAfterValue) Kind() ValueKind { return KindBeforeAfter }
func (QualitativeValue) Kind() ValueKind { return KindQualitative }

func (v SingleValue) canonical() any { return float64(v) }
func (v BeforeAfterValue) canonical() any {
	return map[string]any{"before": v.Before, "after": v.After}
}
func (v QualitativeValue) canonical() any { return string(v) }

// NamedValue is a computed value reported by name.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Sample is one submitted sample. Status, Evaluated and PreProcessing are
// filled in by evaluation and are not part of the raw data.
type Sample struct {
	Index int
	Value Value

	Evaluated     *float64
	PreProcessing []NamedValue
	Status        *bool
}

type sampleWire struct {
	Index         int          `json:"sample_index"`
	SingleValue   any          `json:"single_value,omitempty"`
	BeforeAfter   *beforeAfter `json:"before_after_value,omitempty"`
	Qualitative   *string      `json:"qualitative_value,omitempty"`
	Evaluated     *float64     `json:"evaluated_value,omitempty"`
	PreProcessing []NamedValue `json:"pre_processing_formula_values,omitempty"`
	Status        *bool        `json:"status,omitempty"`
}

type beforeAfter struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// MarshalJSON writes the sample with exactly one value field.
func (s Sample) MarshalJSON() ([]byte, error) {
	w := sampleWire{
		Index:         s.Index,
		Evaluated:     s.Evaluated,
		PreProcessing: s.PreProcessing,
		Status:        s.Status,
	}
	switch v := s.Value.(type) {
	case SingleValue:
		w.SingleValue = float64(v)
	case BeforeAfterValue:
		w.BeforeAfter = &beforeAfter{Before: v.Before, After: v.After}
	case QualitativeValue:
		q := string(v)
		w.Qualitative = &q
	default:
		return nil, fmt.Errorf("sample %d: no value", s.Index)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a sample. Numeric values may be written as numbers
// or numeric strings; exactly one value field must be present.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var w sampleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Sample{Index: w.Index, Evaluated: w.Evaluated, PreProcessing: w.PreProcessing, Status: w.Status}

	set := 0
	if w.SingleValue != nil {
		f, err := toNumber(w.SingleValue)
		if err != nil {
			return fmt.Errorf("sample %d: single_value: %w", w.Index, err)
		}
		out.Value = SingleValue(f)
		set++
	}
	if w.BeforeAfter != nil {
		before, err := toNumber(w.BeforeAfter.Before)
		if err != nil {
			return fmt.Errorf("sample %d: before_after_value.before: %w", w.Index, err)
		}
		after, err := toNumber(w.BeforeAfter.After)
		if err != nil {
			return fmt.Errorf("sample %d: before_after_value.after: %w", w.Index, err)
		}
		out.Value = BeforeAfterValue{Before: before, After: after}
		set++
	}
	if w.Qualitative != nil {
		out.Value = QualitativeValue(*w.Qualitative)
		set++
	}
	if set != 1 {
		return fmt.Errorf("sample %d: exactly one of single_value, before_after_value, qualitative_value is required", w.Index)
	}
	*s = out
	return nil
}

// ToNumber coerces a loosely typed sample value (number or numeric
// string) to a finite float64.
func ToNumber(v any) (float64, error) {
	return toNumber(v)
}

func toNumber(v any) (float64, error) {
	switch v.(type) {
	case nil:
		return 0, fmt.Errorf("value is required")
	case bool:
		return 0, fmt.Errorf("boolean is not a number")
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value must be finite")
	}
	return f, nil
}

// Raw returns the sample without evaluation fields.
func (s Sample) Raw() Sample {
	return Sample{Index: s.Index, Value: s.Value}
}

// CanonicalValue presents the raw sample to the canonical encoder.
func (s Sample) CanonicalValue() any {
	m := map[string]any{"sample_index": s.Index}
	m[string(s.Value.Kind())] = s.Value.canonical()
	return m
}

// SortSamples orders samples by sample_index in place.
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Index < samples[j].Index })
}

// RawSamples returns raw copies of samples ordered by sample_index.
func RawSamples(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = s.Raw()
	}
	SortSamples(out)
	return out
}

// Numbers returns the single values of samples, in order. ok is false if
// any sample is not a SingleValue.
func Numbers(samples []Sample) (values []float64, ok bool) {
	values = make([]float64, 0, len(samples))
	for _, s := range samples {
		v, isSingle := s.Value.(SingleValue)
		if !isSingle {
			return nil, false
		}
		values = append(values, float64(v))
	}
	return values, true
}

// Canonical returns the raw samples, ordered by sample_index, in a form the
// canonical encoder accepts.
func Canonical(samples []Sample) []any {
	raw := RawSamples(samples)
	out := make([]any, len(raw))
	for i, s := range raw {
		out[i] = s
	}
	return out
}

// Ordered returns a copy of samples ordered by sample_index, keeping
// evaluation fields.
func Ordered(samples []Sample) []Sample {
	out := append([]Sample(nil), samples...)
	SortSamples(out)
	return out
}
