package product

// Point is the wire form of one measurement point, as authored in product
// files and stored in the database.
type Point struct {
	Setup                 Setup              `json:"setup" yaml:"setup"`
	Variables             []VariableSpec     `json:"variables,omitempty" yaml:"variables,omitempty"`
	PreProcessingFormulas []FormulaSpec      `json:"pre_processing_formulas,omitempty" yaml:"pre_processing_formulas,omitempty"`
	EvaluationType        string             `json:"evaluation_type" yaml:"evaluation_type"`
	EvaluationSetting     *EvaluationSetting `json:"evaluation_setting,omitempty" yaml:"evaluation_setting,omitempty"`
	RuleEvaluationSetting *RuleSetting       `json:"rule_evaluation_setting" yaml:"rule_evaluation_setting"`
}

// Setup identifies the item and where its samples come from.
type Setup struct {
	Name                string `json:"name" yaml:"name"`
	NameID              string `json:"name_id,omitempty" yaml:"name_id,omitempty"`
	SampleAmount        int    `json:"sample_amount" yaml:"sample_amount"`
	Source              string `json:"source" yaml:"source"`
	SourceDerivedNameID string `json:"source_derived_name_id,omitempty" yaml:"source_derived_name_id,omitempty"`
	SourceInstrumentID  string `json:"source_instrument_id,omitempty" yaml:"source_instrument_id,omitempty"`
	SourceToolModel     string `json:"source_tool_model,omitempty" yaml:"source_tool_model,omitempty"`
	Type                string `json:"type" yaml:"type"`
	Nature              string `json:"nature" yaml:"nature"`
}

// VariableSpec is a variable in wire form.
type VariableSpec struct {
	Type    string   `json:"type" yaml:"type"`
	Name    string   `json:"name" yaml:"name"`
	Value   *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Formula string   `json:"formula,omitempty" yaml:"formula,omitempty"`
	IsShow  bool     `json:"is_show" yaml:"is_show"`
}

// FormulaSpec is a pre-processing formula in wire form.
type FormulaSpec struct {
	Name    string `json:"name" yaml:"name"`
	Formula string `json:"formula" yaml:"formula"`
	IsShow  bool   `json:"is_show" yaml:"is_show"`
}

// EvaluationSetting groups the per-strategy settings.
type EvaluationSetting struct {
	PerSampleSetting   *PerSampleSetting   `json:"per_sample_setting,omitempty" yaml:"per_sample_setting,omitempty"`
	JointSetting       *JointSetting       `json:"joint_setting,omitempty" yaml:"joint_setting,omitempty"`
	QualitativeSetting *QualitativeSetting `json:"qualitative_setting,omitempty" yaml:"qualitative_setting,omitempty"`
}

// PerSampleSetting configures PER_SAMPLE evaluation.
type PerSampleSetting struct {
	IsRawData                bool   `json:"is_raw_data" yaml:"is_raw_data"`
	PreProcessingFormulaName string `json:"pre_processing_formula_name,omitempty" yaml:"pre_processing_formula_name,omitempty"`
}

// JointSetting lists the stages of a JOINT item.
type JointSetting struct {
	Formulas []JointFormulaSpec `json:"formulas" yaml:"formulas"`
}

// JointFormulaSpec is one joint stage in wire form.
type JointFormulaSpec struct {
	Name         string `json:"name" yaml:"name"`
	Formula      string `json:"formula" yaml:"formula"`
	IsFinalValue bool   `json:"is_final_value" yaml:"is_final_value"`
}

// QualitativeSetting configures a QUALITATIVE item.
type QualitativeSetting struct {
	Label           string   `json:"label" yaml:"label"`
	Options         []string `json:"options" yaml:"options"`
	PassingCriteria string   `json:"passing_criteria,omitempty" yaml:"passing_criteria,omitempty"`
}

// RuleSetting is the rule in wire form. Tolerances are pointers so that an
// explicit null can be told apart from zero.
type RuleSetting struct {
	Rule           string   `json:"rule" yaml:"rule"`
	Value          *float64 `json:"value" yaml:"value"`
	Unit           string   `json:"unit" yaml:"unit"`
	ToleranceMinus *float64 `json:"tolerance_minus" yaml:"tolerance_minus"`
	TolerancePlus  *float64 `json:"tolerance_plus" yaml:"tolerance_plus"`
}

// Document is a product file: an id, a display name and its points.
type Document struct {
	ID                string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string  `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	MeasurementPoints []Point `json:"measurement_points" yaml:"measurement_points"`
}
