package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gauge/internal/formula"
)

// Option adjusts validation.
type Option func(*options)

type options struct {
	stored bool
}

// Stored accepts formulas without the leading "=". Definitions read back
// from storage are already normalized.
func Stored() Option {
	return func(o *options) { o.stored = true }
}

// reservedNames are the per-sample identifiers formulas may read.
var reservedNames = map[string]bool{"single_value": true, "before": true, "after": true}

// Validate checks an ordered list of measurement points and returns the
// normalized definition. Every issue across every item is reported in one
// *ValidationError.
func Validate(points []Point, opts ...Option) (*Definition, error) {
	v := &validator{
		position: make(map[string]int, len(points)),
		edges:    make(map[string][]string, len(points)),
	}
	for _, opt := range opts {
		opt(&v.opts)
	}

	if len(points) == 0 {
		v.add("", "measurement_points", ErrRequiredField, "at least one measurement point is required")
		return nil, &ValidationError{Issues: v.issues}
	}

	v.assignNameIDs(points)

	v.items = make([]*Item, len(points))
	for i := range points {
		v.items[i] = v.buildItem(i, points[i])
	}

	if len(v.issues) > 0 {
		return nil, &ValidationError{Issues: v.issues}
	}
	return newDefinition(v.items, v.edges)
}

type validator struct {
	opts     options
	issues   []Issue
	ids      []string
	position map[string]int
	items    []*Item
	edges    map[string][]string
}

func (v *validator) add(nameID, field, code, format string, args ...any) {
	v.issues = append(v.issues, Issue{NameID: nameID, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) addRef(nameID, field, code, ref, format string, args ...any) {
	v.issues = append(v.issues, Issue{NameID: nameID, Field: field, Code: code, Message: fmt.Sprintf(format, args...), Reference: ref})
}

// assignNameIDs fills missing name_ids from names and indexes positions.
func (v *validator) assignNameIDs(points []Point) {
	v.ids = make([]string, len(points))
	for i, p := range points {
		id := strings.TrimSpace(p.Setup.NameID)
		if id == "" {
			id = GenerateNameID(p.Setup.Name)
		}
		label := id
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		v.ids[i] = label

		switch {
		case id == "":
			v.add(label, "setup.name_id", ErrRequiredField, "name_id is required and could not be derived from name %q", p.Setup.Name)
			continue
		case !ValidNameID(id):
			v.add(id, "setup.name_id", ErrInvalidValue, "name_id %q may contain only lowercase letters, digits and underscores", id)
		}
		if first, dup := v.position[id]; dup {
			v.add(id, "setup.name_id", ErrDuplicateName, "name_id %q is already used by measurement point %d", id, first+1)
			continue
		}
		v.position[id] = i
	}
}

func (v *validator) buildItem(pos int, p Point) *Item {
	id := v.ids[pos]
	start := len(v.issues)

	it := &Item{
		Name:         strings.TrimSpace(p.Setup.Name),
		NameID:       id,
		SampleAmount: p.Setup.SampleAmount,
	}
	if it.Name == "" {
		v.add(id, "setup.name", ErrRequiredField, "name is required")
	}
	if it.SampleAmount < 0 {
		v.add(id, "setup.sample_amount", ErrInvalidValue, "sample_amount must be >= 0, got %d", it.SampleAmount)
	}

	it.SampleType = SampleType(upper(p.Setup.Type))
	switch it.SampleType {
	case "":
		it.SampleType = SampleSingle
	case SampleSingle, SampleBeforeAfter:
	default:
		v.add(id, "setup.type", ErrInvalidValue, "type must be SINGLE or BEFORE_AFTER, got %q", p.Setup.Type)
	}

	it.Source = v.source(pos, p.Setup)

	sc := &scope{pos: pos, nameID: id, locals: map[string]nameKind{}}
	declared := map[string]string{}
	it.Variables = v.variables(sc, declared, p.Variables)

	for _, name := range it.SampleNames() {
		sc.locals[name] = kindScalar
	}
	it.PreProcessing = v.preProcessing(sc, declared, p.PreProcessingFormulas)

	switch upper(p.Setup.Nature) {
	case "", string(NatureQuantitative):
		it.Nature = v.quantitative(it, sc, declared, p)
	case string(NatureQualitative):
		it.Nature = v.qualitative(it, p)
	default:
		v.add(id, "setup.nature", ErrInvalidValue, "nature must be QUANTITATIVE or QUALITATIVE, got %q", p.Setup.Nature)
	}

	v.crossChecks(it, p)

	if len(v.issues) > start {
		return nil
	}
	return it
}

func (v *validator) source(pos int, s Setup) Source {
	id := v.ids[pos]
	switch SourceKind(upper(s.Source)) {
	case SourceManual:
		return Manual{}
	case SourceInstrument:
		if strings.TrimSpace(s.SourceInstrumentID) == "" {
			v.add(id, "setup.source_instrument_id", ErrRequiredField, "source_instrument_id is required for INSTRUMENT items")
		}
		return Instrument{InstrumentID: strings.TrimSpace(s.SourceInstrumentID)}
	case SourceTool:
		if strings.TrimSpace(s.SourceToolModel) == "" {
			v.add(id, "setup.source_tool_model", ErrRequiredField, "source_tool_model is required for TOOL items")
		}
		return Tool{Model: strings.TrimSpace(s.SourceToolModel)}
	case SourceDerived:
		from := strings.TrimSpace(s.SourceDerivedNameID)
		if from == "" {
			v.add(id, "setup.source_derived_name_id", ErrRequiredField, "source_derived_name_id is required for DERIVED items")
		} else {
			v.itemRef(&scope{pos: pos, nameID: id}, "setup.source_derived_name_id", from)
		}
		return Derived{From: from}
	case "":
		v.add(id, "setup.source", ErrRequiredField, "source is required")
	default:
		v.add(id, "setup.source", ErrInvalidValue, "source must be MANUAL, INSTRUMENT, DERIVED or TOOL, got %q", s.Source)
	}
	return Manual{}
}

// declare registers a local name, reporting collisions.
func (v *validator) declare(id, field, name string, declared map[string]string) bool {
	switch {
	case name == "":
		v.add(id, field+".name", ErrRequiredField, "name is required")
		return false
	case reservedNames[name]:
		v.add(id, field+".name", ErrDuplicateName, "%q is reserved for sample values", name)
		return false
	}
	if prev, dup := declared[name]; dup {
		v.add(id, field+".name", ErrDuplicateName, "name %q is already declared in %s", name, prev)
		return false
	}
	if _, isItem := v.position[name]; isItem {
		v.add(id, field+".name", ErrDuplicateName, "name %q collides with a measurement item name_id", name)
		return false
	}
	declared[name] = field
	return true
}

func (v *validator) variables(sc *scope, declared map[string]string, specs []VariableSpec) []Variable {
	out := make([]Variable, 0, len(specs))
	for j, spec := range specs {
		field := fmt.Sprintf("variables[%d]", j)
		name := strings.TrimSpace(spec.Name)
		ok := v.declare(sc.nameID, field, name, declared)

		vr := Variable{Name: name, Kind: VariableKind(upper(spec.Type)), IsShow: spec.IsShow}
		switch vr.Kind {
		case VarFixed:
			if spec.Value == nil {
				v.add(sc.nameID, field+".value", ErrRequiredField, "value is required for FIXED variable %q", name)
			} else {
				vr.Value = *spec.Value
			}
		case VarManual:
		case VarFormula, "":
			vr.Kind = VarFormula
			vr.Formula = v.formula(sc, field+".formula", spec.Formula, false)
		default:
			v.add(sc.nameID, field+".type", ErrInvalidValue, "variable type must be FIXED, MANUAL or FORMULA, got %q", spec.Type)
		}
		if ok {
			sc.locals[name] = kindScalar
		}
		out = append(out, vr)
	}
	return out
}

func (v *validator) preProcessing(sc *scope, declared map[string]string, specs []FormulaSpec) []NamedFormula {
	out := make([]NamedFormula, 0, len(specs))
	for k, spec := range specs {
		field := fmt.Sprintf("pre_processing_formulas[%d]", k)
		name := strings.TrimSpace(spec.Name)
		ok := v.declare(sc.nameID, field, name, declared)
		nf := NamedFormula{Name: name, IsShow: spec.IsShow}
		nf.Formula = v.formula(sc, field+".formula", spec.Formula, false)
		if ok {
			sc.locals[name] = kindScalar
		}
		out = append(out, nf)
	}
	return out
}

func (v *validator) quantitative(it *Item, sc *scope, declared map[string]string, p Point) *Quantitative {
	id := it.NameID
	q := &Quantitative{}
	settings := p.EvaluationSetting
	if settings == nil {
		settings = &EvaluationSetting{}
	}
	if settings.QualitativeSetting != nil {
		v.add(id, "evaluation_setting.qualitative_setting", ErrInvalidSetting, "qualitative_setting is only allowed for QUALITATIVE items")
	}

	switch EvaluationType(upper(p.EvaluationType)) {
	case EvalPerSample:
		q.Evaluation = v.perSample(it, settings.PerSampleSetting)
	case EvalJoint:
		q.Evaluation = v.joint(it, sc, declared, settings.JointSetting)
	case EvalSkipCheck:
		q.Evaluation = &SkipCheck{}
	case "":
		v.add(id, "evaluation_type", ErrRequiredField, "evaluation_type is required")
		return q
	default:
		v.add(id, "evaluation_type", ErrInvalidValue, "evaluation_type must be PER_SAMPLE, JOINT or SKIP_CHECK, got %q", p.EvaluationType)
		return q
	}

	switch {
	case p.RuleEvaluationSetting != nil:
		q.Rule = v.rule(id, p.RuleEvaluationSetting)
	case q.Evaluation.Type() != EvalSkipCheck:
		v.add(id, "rule_evaluation_setting", ErrRequiredField, "rule_evaluation_setting is required for %s items", q.Evaluation.Type())
	}
	return q
}

func (v *validator) perSample(it *Item, s *PerSampleSetting) *PerSample {
	id := it.NameID
	if s == nil {
		v.add(id, "evaluation_setting.per_sample_setting", ErrRequiredField, "per_sample_setting is required for PER_SAMPLE items")
		return &PerSample{RawData: true}
	}
	ps := &PerSample{RawData: s.IsRawData, PreProcessing: strings.TrimSpace(s.PreProcessingFormulaName)}
	if ps.RawData {
		if it.SampleType == SampleBeforeAfter {
			v.add(id, "evaluation_setting.per_sample_setting.is_raw_data", ErrInvalidSetting, "BEFORE_AFTER items cannot be evaluated on raw data")
		}
		return ps
	}
	if ps.PreProcessing == "" {
		v.add(id, "evaluation_setting.per_sample_setting.pre_processing_formula_name", ErrRequiredField, "pre_processing_formula_name is required when is_raw_data is false")
		return ps
	}
	for _, nf := range it.PreProcessing {
		if nf.Name == ps.PreProcessing {
			return ps
		}
	}
	v.addRef(id, "evaluation_setting.per_sample_setting.pre_processing_formula_name", ErrUndefinedReference, ps.PreProcessing,
		"pre-processing formula %q is not declared", ps.PreProcessing)
	return ps
}

func (v *validator) joint(it *Item, sc *scope, declared map[string]string, s *JointSetting) *Joint {
	id := it.NameID
	j := &Joint{}
	if s == nil || len(s.Formulas) == 0 {
		v.add(id, "evaluation_setting.joint_setting.formulas", ErrRequiredField, "JOINT items need at least one joint formula")
		return j
	}

	// Joint stages see samples and pre-processed values as whole series.
	for _, name := range it.SampleNames() {
		sc.locals[name] = kindSeries
	}
	for _, nf := range it.PreProcessing {
		if nf.Name != "" {
			sc.locals[nf.Name] = kindSeries
		}
	}

	finals := 0
	for m, spec := range s.Formulas {
		field := fmt.Sprintf("evaluation_setting.joint_setting.formulas[%d]", m)
		name := strings.TrimSpace(spec.Name)
		ok := v.declare(id, field, name, declared)
		st := Stage{Name: name, IsFinal: spec.IsFinalValue}
		st.Formula = v.formula(sc, field+".formula", spec.Formula, true)
		if st.IsFinal {
			finals++
		}
		if ok {
			sc.locals[name] = kindScalar
		}
		j.Stages = append(j.Stages, st)
	}
	if finals == 0 {
		v.add(id, "evaluation_setting.joint_setting.formulas", ErrInvalidSetting, "at least one joint formula must have is_final_value=true")
	}
	return j
}

func (v *validator) qualitative(it *Item, p Point) *Qualitative {
	id := it.NameID
	q := &Qualitative{}

	if et := upper(p.EvaluationType); et != "" && et != string(EvalSkipCheck) {
		v.add(id, "evaluation_type", ErrInvalidSetting, "QUALITATIVE items are always SKIP_CHECK, got %q", p.EvaluationType)
	}
	if p.RuleEvaluationSetting != nil {
		v.add(id, "rule_evaluation_setting", ErrInvalidSetting, "QUALITATIVE items cannot have a rule_evaluation_setting")
	}
	if len(p.Variables) > 0 || len(p.PreProcessingFormulas) > 0 {
		v.add(id, "variables", ErrInvalidSetting, "QUALITATIVE items cannot declare formulas")
	}
	var qs *QualitativeSetting
	if p.EvaluationSetting != nil {
		qs = p.EvaluationSetting.QualitativeSetting
		if p.EvaluationSetting.JointSetting != nil || p.EvaluationSetting.PerSampleSetting != nil {
			v.add(id, "evaluation_setting", ErrInvalidSetting, "QUALITATIVE items only accept qualitative_setting")
		}
	}
	if qs == nil {
		v.add(id, "evaluation_setting.qualitative_setting", ErrRequiredField, "qualitative_setting is required for QUALITATIVE items")
		return q
	}

	q.Label = strings.TrimSpace(qs.Label)
	q.PassingCriteria = strings.TrimSpace(qs.PassingCriteria)
	for _, o := range qs.Options {
		if o = strings.TrimSpace(o); o != "" {
			q.Options = append(q.Options, o)
		}
	}
	if q.Label == "" {
		v.add(id, "evaluation_setting.qualitative_setting.label", ErrRequiredField, "label is required")
	}
	if len(q.Options) == 0 {
		v.add(id, "evaluation_setting.qualitative_setting.options", ErrRequiredField, "at least one option is required")
	}
	if q.PassingCriteria != "" && !q.HasOption(q.PassingCriteria) {
		v.add(id, "evaluation_setting.qualitative_setting.passing_criteria", ErrInvalidValue,
			"passing_criteria %q is not one of the options", q.PassingCriteria)
	}
	return q
}

func (v *validator) rule(id string, r *RuleSetting) *Rule {
	const field = "rule_evaluation_setting"
	rule := &Rule{Kind: RuleKind(upper(r.Rule)), Unit: strings.TrimSpace(r.Unit)}

	switch rule.Kind {
	case RuleMin, RuleMax, RuleBetween:
	default:
		v.add(id, field+".rule", ErrInvalidRule, "rule must be MIN, MAX or BETWEEN, got %q", r.Rule)
		return rule
	}
	if r.Value == nil {
		v.add(id, field+".value", ErrRequiredField, "value is required")
	} else {
		rule.Value = *r.Value
	}
	if rule.Unit == "" {
		v.add(id, field+".unit", ErrRequiredField, "unit is required")
	}

	if rule.Kind != RuleBetween {
		if r.ToleranceMinus != nil || r.TolerancePlus != nil {
			v.add(id, field, ErrInvalidRule, "tolerances must be null for %s rules", rule.Kind)
		}
		return rule
	}
	if r.ToleranceMinus == nil || r.TolerancePlus == nil {
		v.add(id, field, ErrInvalidRule, "BETWEEN rules need tolerance_minus and tolerance_plus")
		return rule
	}
	if *r.ToleranceMinus < 0 || *r.TolerancePlus < 0 {
		v.add(id, field, ErrInvalidRule, "tolerances must be >= 0")
	}
	rule.ToleranceMinus = *r.ToleranceMinus
	rule.TolerancePlus = *r.TolerancePlus
	return rule
}

// crossChecks covers constraints spanning several settings.
func (v *validator) crossChecks(it *Item, p Point) {
	id := it.NameID
	if it.Nature == nil {
		return
	}
	if it.SampleType == SampleBeforeAfter && len(it.PreProcessing) == 0 {
		v.add(id, "pre_processing_formulas", ErrInvalidSetting, "BEFORE_AFTER items need at least one pre-processing formula")
	}
	if it.SampleAmount == 0 {
		_, isJoint := it.Evaluation().(*Joint)
		switch {
		case !isJoint:
			v.add(id, "setup.sample_amount", ErrInvalidSetting, "sample_amount 0 is only allowed for JOINT items")
		case it.SampleType != SampleSingle:
			v.add(id, "setup.sample_amount", ErrInvalidSetting, "sample_amount 0 requires type SINGLE")
		case len(it.PreProcessing) > 0:
			v.add(id, "setup.sample_amount", ErrInvalidSetting, "sample_amount 0 items cannot have pre-processing formulas")
		case it.Source.Kind() == SourceDerived:
			v.add(id, "setup.sample_amount", ErrInvalidSetting, "sample_amount 0 items cannot be DERIVED")
		}
	}
	if d, ok := it.Source.(Derived); ok && d.From != "" {
		if pos, known := v.position[d.From]; known && pos < len(v.items) && v.position[id] > pos {
			if src := v.items[pos]; src != nil {
				switch {
				case src.IsAutoCalculated():
					v.add(id, "setup.source_derived_name_id", ErrInvalidSetting, "source item %q takes no samples", d.From)
				case src.SampleType != it.SampleType:
					v.add(id, "setup.source_derived_name_id", ErrInvalidSetting, "source item %q has sample type %s, this item has %s", d.From, src.SampleType, it.SampleType)
				case src.Nature.Kind() != it.Nature.Kind():
					v.add(id, "setup.source_derived_name_id", ErrInvalidSetting, "source item %q is %s, this item is %s", d.From, src.Nature.Kind(), it.Nature.Kind())
				}
			}
		}
	}
}

// formula parses text and resolves every reference against sc. It returns
// nil when the text does not parse.
func (v *validator) formula(sc *scope, field, text string, stage bool) *formula.Formula {
	if strings.TrimSpace(text) == "" {
		v.add(sc.nameID, field, ErrRequiredField, "formula is required")
		return nil
	}
	var (
		f   *formula.Formula
		err error
	)
	if stage || v.opts.stored {
		f, err = formula.ParseStage(text)
	} else {
		f, err = formula.Parse(text)
	}
	if err != nil {
		var se *formula.SyntaxError
		if errors.As(err, &se) {
			v.addRef(sc.nameID, field, ErrFormulaSyntax, "", "%s", se.Error())
		} else {
			v.add(sc.nameID, field, ErrFormulaSyntax, "%v", err)
		}
		return nil
	}
	v.resolve(sc, field, f)
	return f
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
