package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/evaluator"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
	"github.com/roach88/gauge/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and record ids.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
	record string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh database in its own temporary directory.
// Execution flow:
//  1. Open the store and an engine with deterministic helpers
//  2. Register the product and begin one record
//  3. Run the steps, comparing each outcome with its expect clause
//  4. Read the final record and evaluate assertions
//
// An error is returned only when the scenario cannot be set up; expect and
// assertion mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "gauge-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "gauge.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.engine = engine.New(st,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("rec")),
		engine.WithLogger(h.logger),
		engine.WithMetrics(engine.NewMetrics(prometheus.NewRegistry())),
	)

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.execute(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.AddStep(outcome)
		for _, msg := range compareExpect(i, step.Expect, outcome) {
			result.AddError(msg)
		}
	}

	view, err := h.engine.ShowRecord(ctx, h.record)
	if err != nil {
		return nil, fmt.Errorf("failed to read final record: %w", err)
	}
	result.Record = view

	for _, msg := range EvaluateAssertions(view, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// setup registers the product and begins the scenario's record.
func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	doc, err := product.LoadFile(scenario.Product)
	if err != nil {
		return err
	}
	if _, err := h.engine.PutProduct(ctx, doc); err != nil {
		return err
	}
	view, err := h.engine.CreateRecord(ctx, doc.ID)
	if err != nil {
		return err
	}
	if _, err := h.engine.BeginRecord(ctx, view.ID, scenario.Batch); err != nil {
		return err
	}
	h.record = view.ID

	h.logger.Info("scenario set up",
		"scenario", scenario.Name,
		"product", doc.ID,
		"record", h.record,
	)
	return nil
}

// execute runs one step. Engine rejections are part of the outcome; the
// returned error means the step's own input is malformed.
func (h *Harness) execute(ctx context.Context, index int, step Step) (StepOutcome, error) {
	outcome := StepOutcome{Index: index, Op: step.Op, Item: step.Item}

	var opErr error
	switch step.Op {
	case OpCheck:
		samples, err := ParseSamples(step.Samples)
		if err != nil {
			return outcome, err
		}
		in := evaluator.Input{NameID: step.Item, Samples: samples}
		outcome.Check, opErr = h.engine.CheckItem(ctx, h.record, in)
	case OpSave, OpSubmit:
		req, err := saveRequest(step)
		if err != nil {
			return outcome, err
		}
		outcome.Save, opErr = h.engine.SubmitOrSave(ctx, h.record, engine.Op(step.Op), req)
	default:
		return outcome, fmt.Errorf("unknown op %q", step.Op)
	}

	if opErr != nil {
		outcome.Error = engine.Describe(opErr)
		var se *footprint.StalenessError
		if errors.As(opErr, &se) {
			outcome.Warnings = se.Warnings
		}
	}

	h.logger.Info("step completed",
		"step", index,
		"op", step.Op,
		"ok", outcome.OK(),
	)
	return outcome, nil
}

func saveRequest(step Step) (engine.SaveRequest, error) {
	req := engine.SaveRequest{Version: step.Version}
	for j, in := range step.Results {
		samples, err := ParseSamples(in.Samples)
		if err != nil {
			return req, fmt.Errorf("results[%d]: %w", j, err)
		}
		input := evaluator.Input{NameID: in.Item, Samples: samples}
		for _, name := range slices.Sorted(maps.Keys(in.Variables)) {
			input.VariableValues = append(input.VariableValues, record.NamedValue{Name: name, Value: in.Variables[name]})
		}
		req.MeasurementResults = append(req.MeasurementResults, input)
	}
	return req, nil
}

// compareExpect checks one outcome against its expect clause. A step
// without an expect clause must succeed.
func compareExpect(index int, expect *Expect, o StepOutcome) []string {
	prefix := fmt.Sprintf("steps[%d] (%s)", index, o.Op)
	if expect == nil {
		if !o.OK() {
			return []string{fmt.Sprintf("%s: unexpected error %s: %s", prefix, o.Error.Code, o.Error.Message)}
		}
		return nil
	}

	var errs []string
	if expect.OK {
		if !o.OK() {
			return []string{fmt.Sprintf("%s: expected success, got %s: %s", prefix, o.Error.Code, o.Error.Message)}
		}
	} else {
		if o.OK() {
			return []string{fmt.Sprintf("%s: expected %s, got success", prefix, expect.Code)}
		}
		if string(o.Error.Code) != expect.Code {
			return []string{fmt.Sprintf("%s: expected %s, got %s: %s", prefix, expect.Code, o.Error.Code, o.Error.Message)}
		}
	}

	if expect.CriticalCount != nil {
		got := countLevel(o.Warnings, footprint.LevelCritical)
		if got != *expect.CriticalCount {
			errs = append(errs, fmt.Sprintf("%s: expected %d critical warning(s), got %d", prefix, *expect.CriticalCount, got))
		}
	}
	if expect.Warnings != nil {
		if msg := compareWarnings(expect.Warnings, o.Warnings); msg != "" {
			errs = append(errs, prefix+": "+msg)
		}
	}

	status, sampleStatus, evalErr := responseFields(o)
	if expect.Status != "" && expect.Status != status {
		errs = append(errs, fmt.Sprintf("%s: expected status %s, got %s", prefix, expect.Status, status))
	}
	if expect.SampleStatus != "" && expect.SampleStatus != sampleStatus {
		errs = append(errs, fmt.Sprintf("%s: expected sample_status %s, got %s", prefix, expect.SampleStatus, sampleStatus))
	}
	if expect.EvaluationError != evalErr && (expect.EvaluationError != "" || (o.Op == OpCheck && expect.OK)) {
		errs = append(errs, fmt.Sprintf("%s: expected evaluation_error %q, got %q", prefix, expect.EvaluationError, evalErr))
	}
	return errs
}

func responseFields(o StepOutcome) (status, sampleStatus, evalErr string) {
	switch {
	case o.Check != nil:
		status = string(o.Check.Status)
		if o.Check.EvaluationError != nil {
			evalErr = string(o.Check.EvaluationError.Code)
		}
	case o.Save != nil:
		status = string(o.Save.Status)
		sampleStatus = string(o.Save.SampleStatus)
	}
	return status, sampleStatus, evalErr
}

func compareWarnings(expected []ExpectWarning, actual []footprint.Warning) string {
	if len(expected) != len(actual) {
		return fmt.Sprintf("expected %d warning(s), got %d: %v", len(expected), len(actual), warningList(actual))
	}
	for i, w := range expected {
		if w.Item != actual[i].NameID || w.Level != string(actual[i].Level) {
			return fmt.Sprintf("warnings[%d]: expected %s %s, got %s %s",
				i, w.Level, w.Item, actual[i].Level, actual[i].NameID)
		}
	}
	return ""
}

func countLevel(warnings []footprint.Warning, level footprint.Level) int {
	n := 0
	for _, w := range warnings {
		if w.Level == level {
			n++
		}
	}
	return n
}

func warningList(warnings []footprint.Warning) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = fmt.Sprintf("%s %s", w.Level, w.NameID)
	}
	return out
}
