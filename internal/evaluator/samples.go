package evaluator

import (
	"fmt"

	"github.com/roach88/gauge/internal/formula"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// CheckSamples verifies that samples match the item: value shape, option
// membership, and indices unique within 1..sample_amount.
func CheckSamples(it *product.Item, samples []record.Sample) error {
	switch {
	case it.IsAutoCalculated() && len(samples) > 0:
		return &SampleError{NameID: it.NameID, Message: "item is calculated automatically and takes no samples"}
	case it.Source.Kind() == product.SourceDerived && len(samples) > 0:
		return &SampleError{NameID: it.NameID, Message: "samples of a DERIVED item are copied from its source"}
	case len(samples) > it.SampleAmount:
		return &SampleError{NameID: it.NameID, Message: fmt.Sprintf("got %d samples, sample_amount is %d", len(samples), it.SampleAmount)}
	}

	seen := make(map[int]bool, len(samples))
	for _, s := range samples {
		if s.Index < 1 || s.Index > it.SampleAmount {
			return &SampleError{NameID: it.NameID, Index: s.Index, Message: fmt.Sprintf("sample_index must be between 1 and %d", it.SampleAmount)}
		}
		if seen[s.Index] {
			return &SampleError{NameID: it.NameID, Index: s.Index, Message: "duplicate sample_index"}
		}
		seen[s.Index] = true

		if err := checkValue(it, s); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(it *product.Item, s record.Sample) error {
	if s.Value == nil {
		return &SampleError{NameID: it.NameID, Index: s.Index, Message: "value is required"}
	}
	if q, ok := it.Nature.(*product.Qualitative); ok {
		v, isChoice := s.Value.(record.QualitativeValue)
		switch {
		case !isChoice:
			return &SampleError{NameID: it.NameID, Index: s.Index, Message: "qualitative items take qualitative_value"}
		case !q.HasOption(string(v)):
			return &SampleError{NameID: it.NameID, Index: s.Index, Message: fmt.Sprintf("%q is not one of the options %v", string(v), q.Options)}
		}
		return nil
	}

	want := record.KindSingle
	if it.SampleType == product.SampleBeforeAfter {
		want = record.KindBeforeAfter
	}
	if s.Value.Kind() != want {
		return &SampleError{NameID: it.NameID, Index: s.Index, Message: fmt.Sprintf("%s items take %s, got %s", it.SampleType, want, s.Value.Kind())}
	}
	return nil
}

// ResolveSamples returns the samples to evaluate for it. DERIVED items copy
// the raw samples of their source from ctx.
func ResolveSamples(it *product.Item, given []record.Sample, ctx record.Results) ([]record.Sample, error) {
	d, ok := it.Source.(product.Derived)
	if !ok {
		return record.RawSamples(given), nil
	}
	src := ctx[d.From]
	if src == nil || len(src.Samples) == 0 {
		return nil, &formula.MissingDataError{Item: d.From, Reason: formula.ReasonSourceNotReady}
	}
	return record.RawSamples(src.Samples), nil
}
