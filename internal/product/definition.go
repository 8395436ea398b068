package product

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/gauge/internal/canon"
)

// Definition is a validated, normalized product definition.
type Definition struct {
	Items []*Item

	// Version is a content hash of the normalized points. It changes
	// whenever the measurement-point list changes.
	Version string

	index map[string]int
	graph *Graph
}

func newDefinition(items []*Item, edges map[string][]string) (*Definition, error) {
	d := &Definition{
		Items: items,
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		d.index[it.NameID] = i
	}
	d.graph = newGraph(items, edges)

	version, err := versionOf(d.Points())
	if err != nil {
		return nil, err
	}
	d.Version = version
	return d, nil
}

func versionOf(points []Point) (string, error) {
	data, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("definition version: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("definition version: %w", err)
	}
	return canon.Hash(canon.DomainDefinition, dropNulls(generic))
}

// dropNulls removes null object members so that an absent field and an
// explicit null hash the same.
func dropNulls(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			if elem == nil {
				delete(val, k)
				continue
			}
			val[k] = dropNulls(elem)
		}
	case []any:
		for i, elem := range val {
			val[i] = dropNulls(elem)
		}
	}
	return v
}

// Item returns the item with the given name_id.
func (d *Definition) Item(nameID string) (*Item, bool) {
	i, ok := d.index[nameID]
	if !ok {
		return nil, false
	}
	return d.Items[i], true
}

// Position returns the item's index in the list, or -1.
func (d *Definition) Position(nameID string) int {
	if i, ok := d.index[nameID]; ok {
		return i
	}
	return -1
}

// NameIDs returns every name_id in definition order.
func (d *Definition) NameIDs() []string {
	ids := make([]string, len(d.Items))
	for i, it := range d.Items {
		ids[i] = it.NameID
	}
	return ids
}

// Graph returns the dependency graph.
func (d *Definition) Graph() *Graph {
	return d.graph
}

// Points returns the normalized wire form.
func (d *Definition) Points() []Point {
	out := make([]Point, len(d.Items))
	for i, it := range d.Items {
		out[i] = it.Point()
	}
	return out
}

// MarshalJSON encodes the normalized points.
func (d *Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Points())
}

// UnmarshalJSON decodes stored points and re-validates them.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		return fmt.Errorf("decode definition: %w", err)
	}
	def, err := Validate(points, Stored())
	if err != nil {
		return err
	}
	*d = *def
	return nil
}

// Point encodes the item in normalized wire form.
func (it *Item) Point() Point {
	p := Point{
		Setup: Setup{
			Name:         it.Name,
			NameID:       it.NameID,
			SampleAmount: it.SampleAmount,
			Source:       string(it.Source.Kind()),
			Type:         string(it.SampleType),
			Nature:       string(it.Nature.Kind()),
		},
		EvaluationType: string(it.EvaluationType()),
	}
	switch s := it.Source.(type) {
	case Instrument:
		p.Setup.SourceInstrumentID = s.InstrumentID
	case Derived:
		p.Setup.SourceDerivedNameID = s.From
	case Tool:
		p.Setup.SourceToolModel = s.Model
	}

	for _, vr := range it.Variables {
		spec := VariableSpec{Type: string(vr.Kind), Name: vr.Name, IsShow: vr.IsShow}
		switch vr.Kind {
		case VarFixed:
			val := vr.Value
			spec.Value = &val
		case VarFormula:
			spec.Formula = vr.Formula.Normalized
		}
		p.Variables = append(p.Variables, spec)
	}
	for _, nf := range it.PreProcessing {
		p.PreProcessingFormulas = append(p.PreProcessingFormulas, FormulaSpec{Name: nf.Name, Formula: nf.Formula.Normalized, IsShow: nf.IsShow})
	}

	switch n := it.Nature.(type) {
	case *Qualitative:
		p.EvaluationSetting = &EvaluationSetting{QualitativeSetting: &QualitativeSetting{
			Label:           n.Label,
			Options:         append([]string(nil), n.Options...),
			PassingCriteria: n.PassingCriteria,
		}}
	case *Quantitative:
		switch e := n.Evaluation.(type) {
		case *PerSample:
			p.EvaluationSetting = &EvaluationSetting{PerSampleSetting: &PerSampleSetting{
				IsRawData:                e.RawData,
				PreProcessingFormulaName: e.PreProcessing,
			}}
		case *Joint:
			js := &JointSetting{}
			for _, st := range e.Stages {
				js.Formulas = append(js.Formulas, JointFormulaSpec{Name: st.Name, Formula: st.Formula.Normalized, IsFinalValue: st.IsFinal})
			}
			p.EvaluationSetting = &EvaluationSetting{JointSetting: js}
		}
		if n.Rule != nil {
			p.RuleEvaluationSetting = n.Rule.setting()
		}
	}
	return p
}

func (r *Rule) setting() *RuleSetting {
	value := r.Value
	rs := &RuleSetting{Rule: string(r.Kind), Value: &value, Unit: r.Unit}
	if r.Kind == RuleBetween {
		minus, plus := r.ToleranceMinus, r.TolerancePlus
		rs.ToleranceMinus = &minus
		rs.TolerancePlus = &plus
	}
	return rs
}
