package evaluator

import (
	"fmt"

	"github.com/roach88/gauge/internal/formula"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// Input is the submitted data for one item.
type Input struct {
	NameID  string          `json:"measurement_item_name_id" validate:"required"`
	Samples []record.Sample `json:"samples" validate:"dive"`

	// VariableValues supplies MANUAL variables.
	VariableValues []record.NamedValue `json:"variable_values,omitempty"`
}

// Item evaluates one item against ctx, the results of other items. It does
// not modify ctx.
func Item(def *product.Definition, it *product.Item, in Input, ctx record.Results) (*record.ItemResult, error) {
	res, err := evaluateItem(def, it, in, ctx)
	if err != nil {
		return nil, &ItemError{NameID: it.NameID, Err: err}
	}
	return res, nil
}

func evaluateItem(def *product.Definition, it *product.Item, in Input, ctx record.Results) (*record.ItemResult, error) {
	samples, err := ResolveSamples(it, in.Samples, ctx)
	if err != nil {
		return nil, err
	}
	res := &record.ItemResult{NameID: it.NameID, Samples: samples}
	if it.Nature.Kind() == product.NatureQualitative {
		return res, nil
	}

	e := newEnv(def, ctx)
	for _, v := range it.Variables {
		val, err := variable(it, v, in, e)
		if err != nil {
			return nil, err
		}
		e.scalars[v.Name] = val
		res.VariableValues = append(res.VariableValues, record.NamedValue{Name: v.Name, Value: val})
	}

	if err := preProcess(it, res.Samples, e); err != nil {
		return nil, err
	}

	switch ev := it.Evaluation().(type) {
	case *product.PerSample:
		err = perSample(it, ev, res)
	case *product.Joint:
		err = joint(it, ev, res, e)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func variable(it *product.Item, v product.Variable, in Input, e *env) (float64, error) {
	switch v.Kind {
	case product.VarFixed:
		return v.Value, nil
	case product.VarManual:
		val, ok := namedValue(in.VariableValues, v.Name)
		if !ok {
			return 0, &formula.MissingDataError{Item: it.NameID, Name: v.Name, Reason: formula.ReasonNoValue}
		}
		return val, nil
	default:
		return v.Formula.Eval(e)
	}
}

// preProcess runs the pre-processing formulas on every sample in order.
func preProcess(it *product.Item, samples []record.Sample, e *env) error {
	if len(it.PreProcessing) == 0 {
		return nil
	}
	for i := range samples {
		s := &samples[i]
		local := e.with(sampleScalars(s.Value))
		for _, nf := range it.PreProcessing {
			v, err := nf.Formula.Eval(local)
			if err != nil {
				return fmt.Errorf("sample %d: %s: %w", s.Index, nf.Name, err)
			}
			local.scalars[nf.Name] = v
			s.PreProcessing = append(s.PreProcessing, record.NamedValue{Name: nf.Name, Value: v})
		}
	}
	return nil
}

func sampleScalars(v record.Value) map[string]float64 {
	switch val := v.(type) {
	case record.SingleValue:
		return map[string]float64{"single_value": float64(val)}
	case record.BeforeAfterValue:
		return map[string]float64{"before": val.Before, "after": val.After}
	}
	return nil
}

func perSample(it *product.Item, ev *product.PerSample, res *record.ItemResult) error {
	rule := it.Rule()
	if len(res.Samples) == 0 || rule == nil {
		return nil
	}
	all := true
	for i := range res.Samples {
		s := &res.Samples[i]
		var v float64
		if ev.RawData {
			single, ok := s.Value.(record.SingleValue)
			if !ok {
				return fmt.Errorf("sample %d: raw data evaluation needs single_value", s.Index)
			}
			v = float64(single)
		} else {
			pv, ok := namedValue(s.PreProcessing, ev.PreProcessing)
			if !ok {
				return &formula.MissingDataError{Item: it.NameID, Name: ev.PreProcessing, Reason: formula.ReasonNoValue}
			}
			v = pv
		}
		pass := rule.Passes(v)
		s.Evaluated = &v
		s.Status = &pass
		all = all && pass
	}
	res.Status = &all
	return nil
}

func joint(it *product.Item, ev *product.Joint, res *record.ItemResult, e *env) error {
	if len(res.Samples) > 0 {
		for _, name := range it.SampleNames() {
			xs := make([]float64, len(res.Samples))
			for i, s := range res.Samples {
				xs[i] = sampleScalars(s.Value)[name]
			}
			e.series[name] = xs
		}
		for _, nf := range it.PreProcessing {
			xs := make([]float64, len(res.Samples))
			for i, s := range res.Samples {
				xs[i], _ = namedValue(s.PreProcessing, nf.Name)
			}
			e.series[nf.Name] = xs
		}
	}

	for _, st := range ev.Stages {
		v, err := st.Formula.Eval(e)
		if err != nil {
			return fmt.Errorf("joint formula %s: %w", st.Name, err)
		}
		e.scalars[st.Name] = v
		nv := record.NamedValue{Name: st.Name, Value: v}
		res.JointSettingFormulaValues = append(res.JointSettingFormulaValues, nv)
		if st.IsFinal {
			res.FinalValues = append(res.FinalValues, nv)
		}
	}

	rule := it.Rule()
	if rule == nil {
		return nil
	}
	all := true
	for _, nv := range res.FinalValues {
		all = all && rule.Passes(nv.Value)
	}
	res.Status = &all
	return nil
}

// Options control Evaluate.
type Options struct {
	// Recompute re-evaluates stored items that are not part of the inputs,
	// from their stored samples and manual variable values.
	Recompute bool

	// Affected names stored items to re-evaluate because an item they
	// depend on is part of the inputs. Unlike Recompute, an affected item
	// whose dependencies are still incomplete is skipped.
	Affected map[string]bool
}

// Affected returns the transitive dependents of ids as an Options.Affected
// set.
func Affected(def *product.Definition, ids ...string) map[string]bool {
	deps := def.Graph().TransitiveDependents(ids...)
	out := make(map[string]bool, len(deps))
	for id := range deps {
		out[id] = true
	}
	return out
}

// Evaluate evaluates inputs in definition order. The context starts as
// stored, and each evaluated item replaces its stored result before later
// items run. Auto-calculated and DERIVED items that are not in inputs are
// evaluated when their dependencies are available and skipped otherwise.
// The returned results hold every item evaluated; stored is not modified.
func Evaluate(def *product.Definition, inputs map[string]Input, stored record.Results, opts Options) (record.Results, error) {
	ctx := make(record.Results, len(stored)+len(inputs))
	for id, res := range stored {
		ctx[id] = res
	}

	out := record.Results{}
	for _, it := range def.Items {
		in, given := inputs[it.NameID]
		strict := given
		switch prev := stored[it.NameID]; {
		case given:
		case opts.Recompute && prev.Saved():
			in = inputFromResult(it, prev)
			strict = true
		case opts.Affected[it.NameID] && prev.Saved():
			in = inputFromResult(it, prev)
		case it.IsAutoCalculated() || it.Source.Kind() == product.SourceDerived:
			in = Input{NameID: it.NameID}
		default:
			continue
		}

		res, err := Item(def, it, in, ctx)
		if err != nil {
			if !strict && formula.IsMissingData(err) {
				continue
			}
			return nil, err
		}
		ctx[it.NameID] = res
		out[it.NameID] = res
	}
	return out, nil
}

// Refresh re-evaluates the saved items in ids against results, in
// definition order, and replaces them in results. An item that can no longer
// be evaluated keeps only its samples and manual variable values. Refresh
// returns the ids it replaced.
func Refresh(def *product.Definition, ids map[string]bool, results record.Results) []string {
	var refreshed []string
	for _, it := range def.Items {
		prev := results[it.NameID]
		if !ids[it.NameID] || !prev.Saved() {
			continue
		}
		in := inputFromResult(it, prev)
		res, err := Item(def, it, in, results)
		if err != nil {
			res = &record.ItemResult{
				NameID:         it.NameID,
				Samples:        record.RawSamples(prev.Samples),
				VariableValues: in.VariableValues,
			}
		}
		results[it.NameID] = res
		refreshed = append(refreshed, it.NameID)
	}
	return refreshed
}

// inputFromResult rebuilds the input of a stored result.
func inputFromResult(it *product.Item, res *record.ItemResult) Input {
	in := Input{NameID: it.NameID, Samples: record.RawSamples(res.Samples)}
	for _, v := range it.Variables {
		if v.Kind != product.VarManual {
			continue
		}
		if val, ok := res.Variable(v.Name); ok {
			in.VariableValues = append(in.VariableValues, record.NamedValue{Name: v.Name, Value: val})
		}
	}
	return in
}
