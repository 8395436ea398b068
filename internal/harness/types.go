package harness

import (
	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/footprint"
)

// StepOutcome is what one step produced. Exactly one of the response
// fields is set on success; Error is set on rejection.
type StepOutcome struct {
	Index int    `json:"step"`
	Op    string `json:"op"`
	Item  string `json:"item,omitempty"`

	Check *engine.CheckResult `json:"check,omitempty"`
	Save  *engine.SaveResult  `json:"save,omitempty"`
	Error *engine.ErrorInfo   `json:"error,omitempty"`

	// Warnings are the staleness warnings of a VALIDATION_REQUIRED
	// rejection.
	Warnings []footprint.Warning `json:"warnings,omitempty"`
}

// OK reports whether the step succeeded.
func (o StepOutcome) OK() bool {
	return o.Error == nil
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Steps holds every step outcome in order.
	Steps []StepOutcome `json:"steps"`

	// Record is the record as stored after the last step.
	Record *engine.RecordView `json:"record,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome.
func (r *Result) AddStep(o StepOutcome) {
	r.Steps = append(r.Steps, o)
}
