package evaluator

import (
	"errors"
	"fmt"
)

// ItemError wraps the failure of one item's evaluation.
type ItemError struct {
	NameID string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.NameID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// SampleError reports samples that do not fit the item definition.
type SampleError struct {
	NameID  string
	Index   int // 0 when not tied to one sample
	Message string
}

func (e *SampleError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("item %s sample %d: %s", e.NameID, e.Index, e.Message)
	}
	return fmt.Sprintf("item %s: %s", e.NameID, e.Message)
}

// IsSampleError reports whether err wraps a *SampleError.
func IsSampleError(err error) bool {
	var se *SampleError
	return errors.As(err, &se)
}
