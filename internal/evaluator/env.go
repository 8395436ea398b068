package evaluator

import (
	"fmt"

	"github.com/roach88/gauge/internal/formula"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// env resolves references for one formula of one item. Local names shadow
// nothing: validation guarantees they never collide with item name_ids.
type env struct {
	def     *product.Definition
	ctx     record.Results
	scalars map[string]float64
	series  map[string][]float64
}

func newEnv(def *product.Definition, ctx record.Results) *env {
	return &env{
		def:     def,
		ctx:     ctx,
		scalars: map[string]float64{},
		series:  map[string][]float64{},
	}
}

// with returns a copy whose scalars extend e's.
func (e *env) with(extra map[string]float64) *env {
	scalars := make(map[string]float64, len(e.scalars)+len(extra))
	for k, v := range e.scalars {
		scalars[k] = v
	}
	for k, v := range extra {
		scalars[k] = v
	}
	return &env{def: e.def, ctx: e.ctx, scalars: scalars, series: e.series}
}

func (e *env) Value(ref formula.Reference) (float64, error) {
	if !ref.IsBare() {
		return e.field(ref)
	}
	if v, ok := e.scalars[ref.Name]; ok {
		return v, nil
	}
	if _, ok := e.series[ref.Name]; ok {
		return 0, &formula.EvalError{Message: fmt.Sprintf("%q is a series; aggregate it, e.g. avg(%s)", ref.Name, ref.Name)}
	}
	return e.itemScalar(ref.Name)
}

func (e *env) Series(ref formula.Reference) ([]float64, error) {
	if xs, ok := e.series[ref.Name]; ok {
		return xs, nil
	}
	if _, ok := e.scalars[ref.Name]; ok {
		return nil, &formula.EvalError{Message: fmt.Sprintf("%q is a single value and cannot be aggregated", ref.Name)}
	}
	return e.itemSeries(ref.Name)
}

func (e *env) result(name string) (*product.Item, *record.ItemResult, error) {
	target, ok := e.def.Item(name)
	if !ok {
		return nil, nil, &formula.MissingDataError{Item: name, Reason: formula.ReasonNoValue}
	}
	res := e.ctx[name]
	if !res.Saved() {
		return nil, nil, &formula.MissingDataError{Item: name, Reason: formula.ReasonNotSubmitted}
	}
	return target, res, nil
}

// field reads "item.name": a variable or joint stage of another item.
func (e *env) field(ref formula.Reference) (float64, error) {
	_, res, err := e.result(ref.Name)
	if err != nil {
		return 0, err
	}
	if v, ok := res.Variable(ref.Field); ok {
		return v, nil
	}
	if v, ok := res.Stage(ref.Field); ok {
		return v, nil
	}
	return 0, &formula.MissingDataError{Item: ref.Name, Name: ref.Field, Reason: formula.ReasonNoValue}
}

// itemSeries is the numeric series of another item used by aggregates.
func (e *env) itemSeries(name string) ([]float64, error) {
	target, res, err := e.result(name)
	if err != nil {
		return nil, err
	}
	if target.Nature.Kind() == product.NatureQualitative {
		return nil, &formula.EvalError{Message: fmt.Sprintf("item %q is qualitative and has no numeric samples", name)}
	}
	if len(res.Samples) == 0 {
		xs := make([]float64, len(res.FinalValues))
		for i, nv := range res.FinalValues {
			xs[i] = nv.Value
		}
		return xs, nil
	}
	return sampleSeries(target, record.Ordered(res.Samples))
}

// itemScalar is a bare item reference outside an aggregate: the single final
// value of a joint item, or the value of an item with exactly one sample.
func (e *env) itemScalar(name string) (float64, error) {
	target, res, err := e.result(name)
	if err != nil {
		return 0, err
	}
	if _, isJoint := target.Joint(); isJoint && len(res.FinalValues) == 1 {
		return res.FinalValues[0].Value, nil
	}
	xs, err := e.itemSeries(name)
	if err != nil {
		return 0, err
	}
	if len(xs) != 1 {
		return 0, &formula.EvalError{Message: fmt.Sprintf("item %q has %d values; use an aggregate such as avg(%s)", name, len(xs), name)}
	}
	return xs[0], nil
}

// sampleSeries maps samples to numbers. SINGLE items use single_value.
// BEFORE_AFTER items use the judged pre-processing value, or the last
// pre-processing formula when the item is not judged per sample.
func sampleSeries(it *product.Item, samples []record.Sample) ([]float64, error) {
	if it.SampleType != product.SampleBeforeAfter {
		xs, ok := record.Numbers(samples)
		if !ok {
			return nil, &formula.EvalError{Message: fmt.Sprintf("item %q has non-numeric samples", it.NameID)}
		}
		return xs, nil
	}

	name := ""
	if ps, ok := it.Evaluation().(*product.PerSample); ok && !ps.RawData {
		name = ps.PreProcessing
	} else if n := len(it.PreProcessing); n > 0 {
		name = it.PreProcessing[n-1].Name
	}
	xs := make([]float64, 0, len(samples))
	for _, s := range samples {
		v, ok := namedValue(s.PreProcessing, name)
		if !ok {
			return nil, &formula.MissingDataError{Item: it.NameID, Name: name, Reason: formula.ReasonNoValue}
		}
		xs = append(xs, v)
	}
	return xs, nil
}

func namedValue(values []record.NamedValue, name string) (float64, bool) {
	for _, nv := range values {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return 0, false
}
