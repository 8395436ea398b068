package formula

import (
	"errors"
	"fmt"
)

// SyntaxError reports malformed formula text.
type SyntaxError struct {
	Formula string // text as given to the parser
	Token   string // offending token, empty at end of input
	Pos     int    // byte offset of Token in Formula
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("formula syntax error in %q at position %d: %s", e.Formula, e.Pos, e.Message)
	}
	return fmt.Sprintf("formula syntax error in %q at position %d near %q: %s", e.Formula, e.Pos, e.Token, e.Message)
}

// EvalError reports a runtime arithmetic failure, such as division by zero
// or a non-finite result.
type EvalError struct {
	Formula string
	Message string
}

func (e *EvalError) Error() string {
	if e.Formula == "" {
		return "evaluation error: " + e.Message
	}
	return fmt.Sprintf("evaluation error in %q: %s", e.Formula, e.Message)
}

// Reasons carried by MissingDataError.
const (
	ReasonNotSubmitted   = "NOT_SUBMITTED"
	ReasonSourceNotReady = "SOURCE_NOT_READY"
	ReasonNoValue        = "NO_VALUE"
)

// MissingDataError reports a reference whose data is not available at
// evaluation time. It is distinct from a validation failure: the name is
// declared, but no value was submitted for it.
type MissingDataError struct {
	Item   string // measurement item name_id
	Name   string // local name within Item, empty for the item itself
	Reason string
}

func (e *MissingDataError) Error() string {
	switch {
	case e.Reason == ReasonSourceNotReady:
		return fmt.Sprintf("missing dependency data: source item %q has no samples yet", e.Item)
	case e.Name != "":
		return fmt.Sprintf("missing dependency data: no value for %q in item %q", e.Name, e.Item)
	default:
		return fmt.Sprintf("missing dependency data: item %q not submitted", e.Item)
	}
}

// IsSyntaxError reports whether err wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsEvalError reports whether err wraps an *EvalError.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}

// IsMissingData reports whether err wraps a *MissingDataError.
func IsMissingData(err error) bool {
	var me *MissingDataError
	return errors.As(err, &me)
}
