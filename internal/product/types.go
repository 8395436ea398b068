package product

import (
	"fmt"

	"github.com/roach88/gauge/internal/formula"
)

// SourceKind names where an item's samples come from.
type SourceKind string

const (
	SourceManual     SourceKind = "MANUAL"
	SourceInstrument SourceKind = "INSTRUMENT"
	SourceDerived    SourceKind = "DERIVED"
	SourceTool       SourceKind = "TOOL"
)

// Source is one of Manual, Instrument, Derived or Tool.
type Source interface {
	Kind() SourceKind
	source()
}

// Manual samples are typed in by an operator.
type Manual struct{}

// Instrument samples arrive from a connected device.
type Instrument struct {
	InstrumentID string
}

// Derived items copy their samples from an earlier item.
type Derived struct {
	From string // name_id of the source item
}

// Tool samples are read by an operator from a hand tool.
type Tool struct {
	Model string
}

func (Manual) Kind() SourceKind     { return SourceManual }
func (Instrument) Kind() SourceKind { return SourceInstrument }
func (Derived) Kind() SourceKind    { return SourceDerived }
func (Tool) Kind() SourceKind       { return SourceTool }

func (Manual) source()     {}
func (Instrument) source() {}
func (Derived) source()    {}
func (Tool) source()       {}

// SampleType is the shape of one raw sample.
type SampleType string

const (
	SampleSingle      SampleType = "SINGLE"
	SampleBeforeAfter SampleType = "BEFORE_AFTER"
)

// NatureKind separates numeric from textual items.
type NatureKind string

const (
	NatureQuantitative NatureKind = "QUANTITATIVE"
	NatureQualitative  NatureKind = "QUALITATIVE"
)

// Nature is either *Quantitative or *Qualitative.
type Nature interface {
	Kind() NatureKind
	nature()
}

// Quantitative items are numeric and carry an evaluation strategy. Rule is
// nil only for SkipCheck.
type Quantitative struct {
	Evaluation Evaluation
	Rule       *Rule
}

// Qualitative items carry a closed set of textual options. They have no
// formulas and no rule.
type Qualitative struct {
	Label           string
	Options         []string
	PassingCriteria string
}

func (*Quantitative) Kind() NatureKind { return NatureQuantitative }
func (*Qualitative) Kind() NatureKind  { return NatureQualitative }
func (*Quantitative) nature()          {}
func (*Qualitative) nature()           {}

// HasOption reports whether v is one of the allowed options.
func (q *Qualitative) HasOption(v string) bool {
	for _, o := range q.Options {
		if o == v {
			return true
		}
	}
	return false
}

// EvaluationType names how an item is judged.
type EvaluationType string

const (
	EvalPerSample EvaluationType = "PER_SAMPLE"
	EvalJoint     EvaluationType = "JOINT"
	EvalSkipCheck EvaluationType = "SKIP_CHECK"
)

// Evaluation is one of *PerSample, *Joint or *SkipCheck.
type Evaluation interface {
	Type() EvaluationType
	evaluation()
}

// PerSample judges every sample on its own. When RawData is false the value
// judged is the pre-processing formula named PreProcessing.
type PerSample struct {
	RawData       bool
	PreProcessing string
}

// Joint runs Stages in order; stages marked final feed the rule.
type Joint struct {
	Stages []Stage
}

// SkipCheck applies no rule.
type SkipCheck struct{}

func (*PerSample) Type() EvaluationType { return EvalPerSample }
func (*Joint) Type() EvaluationType     { return EvalJoint }
func (*SkipCheck) Type() EvaluationType { return EvalSkipCheck }
func (*PerSample) evaluation()          {}
func (*Joint) evaluation()              {}
func (*SkipCheck) evaluation()          {}

// Finals returns the stages marked is_final_value.
func (j *Joint) Finals() []Stage {
	var out []Stage
	for _, s := range j.Stages {
		if s.IsFinal {
			out = append(out, s)
		}
	}
	return out
}

// Stage is one named step of a joint pipeline.
type Stage struct {
	Name    string
	Formula *formula.Formula
	IsFinal bool
}

// RuleKind is the comparison applied to a judged value.
type RuleKind string

const (
	RuleMin     RuleKind = "MIN"
	RuleMax     RuleKind = "MAX"
	RuleBetween RuleKind = "BETWEEN"
)

// Rule is a pass/fail criterion. ToleranceMinus and TolerancePlus are used
// only by BETWEEN.
type Rule struct {
	Kind           RuleKind
	Value          float64
	Unit           string
	ToleranceMinus float64
	TolerancePlus  float64
}

// Passes reports whether v satisfies the rule. Bounds are inclusive.
func (r *Rule) Passes(v float64) bool {
	switch r.Kind {
	case RuleMin:
		return v >= r.Value
	case RuleMax:
		return v <= r.Value
	case RuleBetween:
		return v >= r.Value-r.ToleranceMinus && v <= r.Value+r.TolerancePlus
	}
	return false
}

// String renders the rule for diagnostics, e.g. "BETWEEN 10-0.5/+0.5 mm".
func (r *Rule) String() string {
	switch r.Kind {
	case RuleBetween:
		return fmt.Sprintf("BETWEEN %g-%g/+%g %s", r.Value, r.ToleranceMinus, r.TolerancePlus, r.Unit)
	default:
		return fmt.Sprintf("%s %g %s", r.Kind, r.Value, r.Unit)
	}
}

// VariableKind says where a variable's value comes from.
type VariableKind string

const (
	VarFixed   VariableKind = "FIXED"
	VarManual  VariableKind = "MANUAL"
	VarFormula VariableKind = "FORMULA"
)

// Variable is a named item-level scalar.
type Variable struct {
	Name    string
	Kind    VariableKind
	Value   float64          // FIXED only
	Formula *formula.Formula // FORMULA only
	IsShow  bool
}

// NamedFormula is a pre-processing step applied to every sample.
type NamedFormula struct {
	Name    string
	Formula *formula.Formula
	IsShow  bool
}

// Item is one validated measurement point.
type Item struct {
	Name          string
	NameID        string
	SampleAmount  int
	Source        Source
	SampleType    SampleType
	Nature        Nature
	Variables     []Variable
	PreProcessing []NamedFormula
}

// EvaluationType returns the item's strategy. Qualitative items are always
// SKIP_CHECK.
func (it *Item) EvaluationType() EvaluationType {
	if q, ok := it.Nature.(*Quantitative); ok {
		return q.Evaluation.Type()
	}
	return EvalSkipCheck
}

// Evaluation returns the quantitative evaluation, or nil for qualitative items.
func (it *Item) Evaluation() Evaluation {
	if q, ok := it.Nature.(*Quantitative); ok {
		return q.Evaluation
	}
	return nil
}

// Rule returns the rule, or nil when none applies.
func (it *Item) Rule() *Rule {
	if q, ok := it.Nature.(*Quantitative); ok {
		return q.Rule
	}
	return nil
}

// Joint returns the joint pipeline when the item is JOINT.
func (it *Item) Joint() (*Joint, bool) {
	j, ok := it.Evaluation().(*Joint)
	return j, ok
}

// IsRawInput reports whether samples are entered directly rather than
// copied or computed. Only raw-input items are fingerprinted.
func (it *Item) IsRawInput() bool {
	switch it.Source.Kind() {
	case SourceManual, SourceInstrument, SourceTool:
		return !it.IsAutoCalculated()
	}
	return false
}

// IsAutoCalculated reports whether the item takes no samples at all
// (sample_amount 0 on a JOINT item).
func (it *Item) IsAutoCalculated() bool {
	return it.SampleAmount == 0
}

// SampleNames returns the per-sample identifiers formulas may use.
func (it *Item) SampleNames() []string {
	if it.IsAutoCalculated() || it.Nature.Kind() == NatureQualitative {
		return nil
	}
	if it.SampleType == SampleBeforeAfter {
		return []string{"before", "after"}
	}
	return []string{"single_value"}
}

// Variable returns the variable with the given name.
func (it *Item) Variable(name string) (*Variable, bool) {
	for i := range it.Variables {
		if it.Variables[i].Name == name {
			return &it.Variables[i], true
		}
	}
	return nil, false
}

// Exports reports whether name is a variable or a joint stage of the item,
// the names another item may read with "item.name".
func (it *Item) Exports(name string) bool {
	if _, ok := it.Variable(name); ok {
		return true
	}
	if j, ok := it.Joint(); ok {
		for _, s := range j.Stages {
			if s.Name == name {
				return true
			}
		}
	}
	return false
}
