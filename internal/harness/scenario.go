package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gauge/internal/record"
)

// Scenario drives one record through a sequence of checks, saves and
// submits against a product definition, asserting on every response and
// on the final record.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Product is the path of the product definition file, relative to the
	// scenario file.
	Product string `yaml:"product"`

	// Batch is the batch number assigned before the first step.
	// Defaults to "B-001".
	Batch string `yaml:"batch,omitempty"`

	// Steps run in order against a single record.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final record.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpCheck  = "check"
	OpSave   = "save"
	OpSubmit = "submit"
)

// Step is one engine call.
type Step struct {
	// Op is check, save or submit.
	Op string `yaml:"op"`

	// Item and Samples are the check input.
	Item    string `yaml:"item,omitempty"`
	Samples []any  `yaml:"samples,omitempty"`

	// Results are the save or submit payload.
	Results []ItemInput `yaml:"results,omitempty"`

	// Version, when set, is sent as the expected record version.
	Version int64 `yaml:"version,omitempty"`

	// Expect validates the response. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ItemInput is one measurement result of a save or submit payload.
type ItemInput struct {
	Item      string             `yaml:"item"`
	Samples   []any              `yaml:"samples"`
	Variables map[string]float64 `yaml:"variables,omitempty"`
}

// Expect is the expected outcome of a step. Either OK is true or Code names
// the expected error code.
type Expect struct {
	OK   bool   `yaml:"ok,omitempty"`
	Code string `yaml:"code,omitempty"`

	// CriticalCount is checked on VALIDATION_REQUIRED rejections.
	CriticalCount *int `yaml:"critical_count,omitempty"`

	// Warnings are the expected staleness warnings, in order.
	Warnings []ExpectWarning `yaml:"warnings,omitempty"`

	// Status and SampleStatus are checked on success.
	Status       string `yaml:"status,omitempty"`
	SampleStatus string `yaml:"sample_status,omitempty"`

	// EvaluationError is the expected code of a check whose samples were
	// stored but not evaluated.
	EvaluationError string `yaml:"evaluation_error,omitempty"`
}

// ExpectWarning is one expected staleness warning.
type ExpectWarning struct {
	Item  string `yaml:"item"`
	Level string `yaml:"level"`
}

// Assertion validates the final record.
type Assertion struct {
	// Type is "record" or "item".
	Type string `yaml:"type"`

	// Item is the name_id checked by an item assertion.
	Item string `yaml:"item,omitempty"`

	// Expect holds the expected fields. Subset match: only listed fields
	// are validated.
	//   record: status, sample_status, overall_result, progress, saved_items
	//   item:   status, samples, variables.<name>, stages.<name>, final
	Expect map[string]any `yaml:"expect"`

	// Tolerance bounds numeric comparisons. Defaults to 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord = "record"
	AssertItem   = "item"
)

// DefaultBatch is the batch number used when a scenario names none.
const DefaultBatch = "B-001"

// LoadScenario reads and parses a scenario YAML file. The product path is
// resolved relative to the scenario file. Returns an error if the file
// doesn't exist, is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(scenario.Product) {
		scenario.Product = filepath.Join(filepath.Dir(path), scenario.Product)
	}
	if _, err := os.Stat(scenario.Product); err != nil {
		return nil, fmt.Errorf("invalid scenario: product file not found: %s", scenario.Product)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.Batch == "" {
		scenario.Batch = DefaultBatch
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Product == "" {
		return fmt.Errorf("product is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpCheck:
		if step.Item == "" {
			return fmt.Errorf("steps[%d]: item is required for check", index)
		}
		if len(step.Results) > 0 {
			return fmt.Errorf("steps[%d]: check takes samples, not results", index)
		}
	case OpSave, OpSubmit:
		if step.Item != "" || len(step.Samples) > 0 {
			return fmt.Errorf("steps[%d]: %s takes results, not item and samples", index, step.Op)
		}
		for j, in := range step.Results {
			if in.Item == "" {
				return fmt.Errorf("steps[%d].results[%d]: item is required", index, j)
			}
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if e := step.Expect; e != nil {
		if e.OK == (e.Code != "") {
			return fmt.Errorf("steps[%d].expect: exactly one of ok and code is required", index)
		}
		if e.OK && (e.CriticalCount != nil || len(e.Warnings) > 0) {
			return fmt.Errorf("steps[%d].expect: critical_count and warnings need a code", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertRecord:
	case AssertItem:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for item assertions", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if len(a.Expect) == 0 {
		return fmt.Errorf("assertions[%d]: expect is required", index)
	}
	return nil
}

// ParseSamples converts scenario sample values to samples indexed from 1.
// A number or numeric string is a single value, a two-element list is a
// before/after pair, and any other string is a qualitative value.
func ParseSamples(values []any) ([]record.Sample, error) {
	samples := make([]record.Sample, len(values))
	for i, v := range values {
		value, err := parseValue(v)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i+1, err)
		}
		samples[i] = record.Sample{Index: i + 1, Value: value}
	}
	return samples, nil
}

func parseValue(v any) (record.Value, error) {
	switch val := v.(type) {
	case []any:
		if len(val) != 2 {
			return nil, fmt.Errorf("before/after pair needs 2 values, got %d", len(val))
		}
		before, err := record.ToNumber(val[0])
		if err != nil {
			return nil, fmt.Errorf("before: %w", err)
		}
		after, err := record.ToNumber(val[1])
		if err != nil {
			return nil, fmt.Errorf("after: %w", err)
		}
		return record.BeforeAfterValue{Before: before, After: after}, nil
	case string:
		if f, err := cast.ToFloat64E(val); err == nil {
			return record.SingleValue(f), nil
		}
		return record.QualitativeValue(val), nil
	}
	f, err := record.ToNumber(v)
	if err != nil {
		return nil, err
	}
	return record.SingleValue(f), nil
}
