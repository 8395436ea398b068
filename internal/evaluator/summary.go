package evaluator

import (
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// Summary is the record-level outcome of a set of results.
type Summary struct {
	// OverallResult is the AND of every judged item status.
	OverallResult bool

	SampleStatus record.SampleStatus

	// Missing lists items that must be judged but hold no data.
	Missing []string

	// Unjudged lists items that hold data but have no status yet.
	Unjudged []string

	// Short lists items holding fewer samples than their sample_amount.
	Short []string
}

// Complete reports whether every item that must be judged has a status and
// every saved item holds all of its samples.
func (s Summary) Complete() bool {
	return len(s.Missing) == 0 && len(s.Unjudged) == 0 && len(s.Short) == 0
}

// Summarize combines item results. SKIP_CHECK items never need a status.
func Summarize(def *product.Definition, results record.Results) Summary {
	sum := Summary{OverallResult: true}
	ng := false
	for _, it := range def.Items {
		res := results[it.NameID]
		if res != nil && res.Status != nil && !*res.Status {
			sum.OverallResult = false
			ng = true
		}
		if res.Saved() && !it.IsAutoCalculated() && len(res.Samples) != it.SampleAmount {
			sum.Short = append(sum.Short, it.NameID)
		}
		if it.EvaluationType() == product.EvalSkipCheck {
			continue
		}
		switch {
		case !res.Saved():
			sum.Missing = append(sum.Missing, it.NameID)
		case res.Status == nil:
			sum.Unjudged = append(sum.Unjudged, it.NameID)
		}
	}

	switch {
	case !sum.Complete():
		sum.SampleStatus = record.SampleNotComplete
	case ng:
		sum.SampleStatus = record.SampleNG
	default:
		sum.SampleStatus = record.SampleOK
	}
	return sum
}
