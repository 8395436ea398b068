package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gauge/internal/canon"
)

// Digest is the stable summary of a scenario run that golden files hold.
// It keeps outcomes, codes and progress, and leaves out timestamps and
// computed floating-point detail that assertions cover.
type Digest struct {
	ScenarioName string
	Steps        []StepOutcome
	Record       *recordDigest
}

type recordDigest struct {
	status        string
	sampleStatus  string
	progress      float64
	savedItems    []string
	overallResult *bool
}

// NewDigest builds the digest of a result.
func NewDigest(name string, result *Result) *Digest {
	d := &Digest{ScenarioName: name, Steps: result.Steps}
	if v := result.Record; v != nil {
		d.Record = &recordDigest{
			status:        string(v.Status),
			sampleStatus:  string(v.SampleStatus),
			progress:      v.Progress,
			savedItems:    v.SavedItems,
			overallResult: v.OverallResult,
		}
	}
	return d
}

// toCanonicalMap converts a Digest to a map[string]any for canonical JSON
// serialization. Empty fields are omitted; canonical JSON has no null.
func (d *Digest) toCanonicalMap() map[string]any {
	steps := make([]any, len(d.Steps))
	for i, o := range d.Steps {
		m := map[string]any{
			"step": o.Index,
			"op":   o.Op,
			"ok":   o.OK(),
		}
		if o.Item != "" {
			m["item"] = o.Item
		}
		if o.Error != nil {
			m["code"] = string(o.Error.Code)
		}
		if len(o.Warnings) > 0 {
			warnings := make([]any, len(o.Warnings))
			for j, w := range o.Warnings {
				warnings[j] = map[string]any{"item": w.NameID, "level": string(w.Level)}
			}
			m["warnings"] = warnings
		}
		if c := o.Check; c != nil {
			m["status"] = string(c.Status)
			if c.EvaluationError != nil {
				m["evaluation_error"] = string(c.EvaluationError.Code)
			}
		}
		if s := o.Save; s != nil {
			m["status"] = string(s.Status)
			m["sample_status"] = string(s.SampleStatus)
			m["progress"] = s.Progress
		}
		steps[i] = m
	}

	result := map[string]any{
		"scenario_name": d.ScenarioName,
		"steps":         steps,
	}
	if r := d.Record; r != nil {
		rec := map[string]any{
			"status":        r.status,
			"sample_status": r.sampleStatus,
			"progress":      r.progress,
			"saved_items":   r.savedItems,
		}
		if r.overallResult != nil {
			rec["overall_result"] = *r.overallResult
		}
		result["record"] = rec
	}
	return result
}

// MarshalCanonical returns the canonical JSON of the digest.
func (d *Digest) MarshalCanonical() ([]byte, error) {
	return canon.Marshal(d.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its digest against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the digest doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewDigest(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
