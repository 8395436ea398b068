package engine

import (
	"context"

	"github.com/roach88/gauge/internal/evaluator"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// CheckResult is the outcome of CheckItem.
type CheckResult struct {
	MeasurementID string        `json:"measurement_id"`
	NameID        string        `json:"measurement_item_name_id"`
	Status        record.Status `json:"status"`
	Version       int64         `json:"version"`

	Snapshot *record.Snapshot   `json:"last_check_data"`
	Result   *record.ItemResult `json:"result"`

	// EvaluationError is set when the samples were stored but could not be
	// evaluated yet, for example because a dependency has no data.
	EvaluationError *ErrorInfo `json:"evaluation_error,omitempty"`
}

// CheckItem confirms the samples of one item. It stores a snapshot of the
// raw samples as the item's last check, replacing any earlier one, and
// stores the samples with a best-effort evaluation. Saved items that depend
// on it are re-evaluated against the new samples. Later saves of the same
// samples pass the staleness gate.
func (e *Engine) CheckItem(ctx context.Context, recordID string, in evaluator.Input) (*CheckResult, error) {
	if err := e.validate.Struct(in); err != nil {
		e.metrics.check(outcomeRejected)
		return nil, invalidRequest("invalid check request", fieldErrors(err))
	}

	var result *CheckResult
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		rec, def, err := e.readRecord(ctx, tx, recordID)
		if err != nil {
			return err
		}
		it, ok := def.Item(in.NameID)
		if !ok {
			return invalidItems([]string{in.NameID}, def)
		}
		if err := evaluator.CheckSamples(it, in.Samples); err != nil {
			return err
		}

		now := e.clock.Now()
		if err := rec.Start("check", now); err != nil {
			return err
		}

		samples, err := evaluator.ResolveSamples(it, in.Samples, rec.Results)
		if err != nil {
			return &evaluator.ItemError{NameID: it.NameID, Err: err}
		}
		snap, err := footprint.Take(samples, now)
		if err != nil {
			return err
		}
		rec.LastCheck[it.NameID] = snap

		res, evalErr := evaluator.Item(def, it, in, rec.Results)
		if evalErr != nil {
			res = &record.ItemResult{
				NameID:         it.NameID,
				Samples:        samples,
				VariableValues: in.VariableValues,
			}
		}
		rec.Results[it.NameID] = res
		evaluator.Refresh(def, evaluator.Affected(def, it.NameID), rec.Results)
		rec.SampleStatus = evaluator.Summarize(def, rec.Results).SampleStatus

		if err := writeRecord(ctx, tx, rec); err != nil {
			return err
		}
		result = &CheckResult{
			MeasurementID:   rec.ID,
			NameID:          it.NameID,
			Status:          rec.Status,
			Version:         rec.Version,
			Snapshot:        snap,
			Result:          res,
			EvaluationError: Describe(evalErr),
		}
		return nil
	})
	if err != nil {
		e.metrics.check(outcomeFor(err))
		e.logger.Info("item check failed",
			"measurement_id", recordID,
			"item", in.NameID,
			"code", Code(err),
			"error", err,
		)
		return nil, err
	}

	e.metrics.check(outcomeOK)
	if result.EvaluationError != nil {
		e.metrics.evaluation(result.EvaluationError.Code)
	}
	e.logger.Info("item checked",
		"measurement_id", recordID,
		"item", in.NameID,
		"fingerprint", result.Snapshot.Fingerprint,
		"samples", len(result.Snapshot.Samples),
	)
	return result, nil
}
