package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/gauge/internal/evaluator"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// Op selects what SubmitOrSave requires after evaluation.
type Op string

const (
	// OpSave stores partial results and keeps the record IN_PROGRESS.
	OpSave Op = "save"

	// OpSubmit requires every non-skip item and completes the record.
	OpSubmit Op = "submit"
)

// SaveRequest is the payload of a save or submit.
type SaveRequest struct {
	// Version, when non-zero, must equal the record version the caller
	// last read.
	Version int64 `json:"version,omitempty" validate:"gte=0"`

	MeasurementResults []evaluator.Input `json:"measurement_results" validate:"dive"`
}

// SaveResult is the outcome of a successful save or submit.
type SaveResult struct {
	MeasurementID   string              `json:"measurement_id"`
	Status          record.Status       `json:"status"`
	Progress        float64             `json:"progress"`
	SavedItems      []string            `json:"saved_items"`
	TotalSavedItems int                 `json:"total_saved_items"`
	OverallResult   *bool               `json:"overall_result,omitempty"`
	SampleStatus    record.SampleStatus `json:"sample_status"`
	Version         int64               `json:"version"`

	// Items holds every item evaluated by this request, in definition
	// order.
	Items []*record.ItemResult `json:"items"`
}

// Save stores partial results.
func (e *Engine) Save(ctx context.Context, recordID string, req SaveRequest) (*SaveResult, error) {
	return e.SubmitOrSave(ctx, recordID, OpSave, req)
}

// Submit stores results and completes the record.
func (e *Engine) Submit(ctx context.Context, recordID string, req SaveRequest) (*SaveResult, error) {
	return e.SubmitOrSave(ctx, recordID, OpSubmit, req)
}

// SubmitOrSave validates the payload, runs the staleness gate against the
// record's last checks, evaluates every affected item in definition order
// and stores the results. Submit also requires every non-skip item to be
// judged and completes the record.
//
// A rejection at any step leaves the record exactly as it was: either every
// result is written or none is.
func (e *Engine) SubmitOrSave(ctx context.Context, recordID string, op Op, req SaveRequest) (*SaveResult, error) {
	if op != OpSave && op != OpSubmit {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if err := e.validate.Struct(req); err != nil {
		e.metrics.write(op, outcomeRejected)
		return nil, invalidRequest("invalid measurement results", fieldErrors(err))
	}

	var result *SaveResult
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		rec, def, err := e.readRecord(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if req.Version != 0 && req.Version != rec.Version {
			return &Error{
				Code:    ErrCodeConflict,
				Message: fmt.Sprintf("measurement record is at version %d, request was made against %d", rec.Version, req.Version),
				Details: map[string]any{"measurement_id": rec.ID, "version": rec.Version},
			}
		}

		now := e.clock.Now()
		if err := rec.Start(string(op), now); err != nil {
			return err
		}

		inputs, payload, err := collectInputs(def, req.MeasurementResults)
		if err != nil {
			return err
		}
		if err := footprint.Gate(def, payload, rec.LastCheck); err != nil {
			return err
		}

		opts := evaluator.Options{Recompute: op == OpSubmit, Affected: evaluator.Affected(def, slices.Collect(maps.Keys(inputs))...)}
		evaluated, err := evaluator.Evaluate(def, inputs, rec.Results, opts)
		if err != nil {
			return err
		}
		merged := make(record.Results, len(rec.Results)+len(evaluated))
		for id, res := range rec.Results {
			merged[id] = res
		}
		for id, res := range evaluated {
			merged[id] = res
		}

		sum := evaluator.Summarize(def, merged)
		if op == OpSubmit && !sum.Complete() {
			return incomplete(sum)
		}

		rec.Results = merged
		if op == OpSubmit {
			if err := rec.Complete(sum.OverallResult, sum.SampleStatus, now); err != nil {
				return err
			}
		} else {
			rec.SampleStatus = sum.SampleStatus
			rec.OverallResult = judgedOverall(merged, sum)
		}

		if err := writeRecord(ctx, tx, rec); err != nil {
			return err
		}
		result = newSaveResult(rec, def, evaluated)
		return nil
	})
	if err != nil {
		e.rejected(recordID, op, err)
		return nil, err
	}

	e.metrics.write(op, outcomeOK)
	msg := "record saved"
	if op == OpSubmit {
		msg = "record submitted"
	}
	e.logger.Info(msg,
		"measurement_id", recordID,
		"status", result.Status,
		"sample_status", result.SampleStatus,
		"items", len(result.Items),
		"progress", result.Progress,
	)
	return result, nil
}

func (e *Engine) rejected(recordID string, op Op, err error) {
	code := Code(err)
	e.metrics.write(op, outcomeFor(err))

	var se *footprint.StalenessError
	if errors.As(err, &se) {
		e.metrics.staleness(se)
		e.logger.Warn("staleness gate rejected request",
			"measurement_id", recordID,
			"op", op,
			"critical_count", se.CriticalCount,
			"warning_count", se.DependencyCount,
		)
		return
	}
	if code == ErrCodeMissingData || code == ErrCodeEvaluation {
		e.metrics.evaluation(code)
	}
	e.logger.Info("request rejected",
		"measurement_id", recordID,
		"op", op,
		"code", code,
		"error", err,
	)
}

// collectInputs indexes the payload by name_id and checks every item's
// samples. payload holds the raw samples the staleness gate compares.
func collectInputs(def *product.Definition, inputs []evaluator.Input) (map[string]evaluator.Input, map[string][]record.Sample, error) {
	byID := make(map[string]evaluator.Input, len(inputs))
	payload := make(map[string][]record.Sample, len(inputs))
	var unknown []string
	for _, in := range inputs {
		it, ok := def.Item(in.NameID)
		if !ok {
			unknown = append(unknown, in.NameID)
			continue
		}
		if _, dup := byID[in.NameID]; dup {
			return nil, nil, invalidRequest(
				fmt.Sprintf("measurement item %s appears more than once", in.NameID),
				map[string]any{"measurement_item_name_id": in.NameID},
			)
		}
		if err := evaluator.CheckSamples(it, in.Samples); err != nil {
			return nil, nil, err
		}
		byID[in.NameID] = in
		payload[in.NameID] = in.Samples
	}
	if len(unknown) > 0 {
		return nil, nil, invalidItems(unknown, def)
	}
	return byID, payload, nil
}

func incomplete(sum evaluator.Summary) *Error {
	details := map[string]any{}
	if len(sum.Missing) > 0 {
		details["missing_items"] = sum.Missing
	}
	if len(sum.Unjudged) > 0 {
		details["unjudged_items"] = sum.Unjudged
	}
	if len(sum.Short) > 0 {
		details["short_items"] = sum.Short
	}
	return &Error{
		Code:    ErrCodeIncomplete,
		Message: "every measurement item must have all its samples and be judged before submit",
		Details: details,
	}
}

// judgedOverall is the overall result of a partial save, or nil when no
// item has been judged yet.
func judgedOverall(results record.Results, sum evaluator.Summary) *bool {
	for _, res := range results {
		if res != nil && res.Status != nil {
			overall := sum.OverallResult
			return &overall
		}
	}
	return nil
}

func newSaveResult(rec *record.Record, def *product.Definition, evaluated record.Results) *SaveResult {
	view := newRecordView(rec, def)
	items := make([]*record.ItemResult, 0, len(evaluated))
	for _, it := range def.Items {
		if res, ok := evaluated[it.NameID]; ok {
			items = append(items, res)
		}
	}
	return &SaveResult{
		MeasurementID:   rec.ID,
		Status:          rec.Status,
		Progress:        view.Progress,
		SavedItems:      view.SavedItems,
		TotalSavedItems: view.TotalSavedItems,
		OverallResult:   rec.OverallResult,
		SampleStatus:    rec.SampleStatus,
		Version:         rec.Version,
		Items:           items,
	}
}

// fieldErrors flattens validator errors into envelope details.
func fieldErrors(err error) map[string]any {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]any{"error": err.Error()}
	}
	fields := make([]map[string]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, map[string]string{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
		})
	}
	return map[string]any{"fields": fields}
}

func outcomeFor(err error) string {
	switch Code(err) {
	case ErrCodeInternal:
		return outcomeError
	default:
		return outcomeRejected
	}
}
