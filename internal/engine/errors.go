package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/gauge/internal/evaluator"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/formula"
	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// ErrorCode is the wire code of an operation failure.
type ErrorCode string

const (
	// ErrCodeInvalidItem indicates a payload names an item the product
	// does not define.
	ErrCodeInvalidItem ErrorCode = "INVALID_MEASUREMENT_ITEM"

	// ErrCodeInvalidSamples indicates malformed samples or a malformed
	// request.
	ErrCodeInvalidSamples ErrorCode = "INVALID_SAMPLES"

	// ErrCodeIncomplete indicates a submit with items still missing or
	// unjudged.
	ErrCodeIncomplete ErrorCode = "INCOMPLETE_SUBMISSION"

	ErrCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeProductNotFound ErrorCode = "PRODUCT_NOT_FOUND"

	// ErrCodeInvalidState indicates the record lifecycle forbids the
	// operation.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeConflict indicates the record changed between read and write.
	ErrCodeConflict ErrorCode = "CONCURRENT_MODIFICATION"

	ErrCodeValidationRequired ErrorCode = footprint.Code
	ErrCodeFormulaSyntax      ErrorCode = "FORMULA_SYNTAX_ERROR"
	ErrCodeFormulaValidation  ErrorCode = "FORMULA_VALIDATION_ERROR"
	ErrCodeMissingData        ErrorCode = "MISSING_DEPENDENCY_DATA"
	ErrCodeEvaluation         ErrorCode = "EVALUATION_ERROR"
	ErrCodeInvalidFile        ErrorCode = "INVALID_PRODUCT_FILE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error is an operation-level failure with a wire code.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err maps to code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// IsNotFound reports whether err is a missing record or product.
func IsNotFound(err error) bool {
	c := Code(err)
	return c == ErrCodeRecordNotFound || c == ErrCodeProductNotFound
}

// Code maps any error returned by the engine, or by the packages it
// drives, to its wire code.
func Code(err error) ErrorCode {
	var (
		ee *Error
		se *footprint.StalenessError
		ve *product.ValidationError
		le *product.LoadError
		te *record.TransitionError
		sm *evaluator.SampleError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ee):
		return ee.Code
	case errors.As(err, &se):
		return ErrCodeValidationRequired
	case errors.As(err, &ve):
		if ve.HasSyntaxErrors() {
			return ErrCodeFormulaSyntax
		}
		return ErrCodeFormulaValidation
	case errors.As(err, &le):
		return ErrCodeInvalidFile
	case errors.As(err, &te):
		return ErrCodeInvalidState
	case errors.As(err, &sm):
		return ErrCodeInvalidSamples
	case formula.IsSyntaxError(err):
		return ErrCodeFormulaSyntax
	case formula.IsMissingData(err):
		return ErrCodeMissingData
	case formula.IsEvalError(err):
		return ErrCodeEvaluation
	case errors.Is(err, store.ErrConflict):
		return ErrCodeConflict
	default:
		return ErrCodeInternal
	}
}

// Details returns the structured details of err for the wire envelope, or
// nil when there are none.
func Details(err error) map[string]any {
	var (
		ee *Error
		se *footprint.StalenessError
		ve *product.ValidationError
		ie *evaluator.ItemError
		sm *evaluator.SampleError
	)
	switch {
	case errors.As(err, &ee):
		return ee.Details
	case errors.As(err, &se):
		return map[string]any{
			"critical_count":   se.CriticalCount,
			"dependency_count": se.DependencyCount,
			"warnings":         se.Warnings,
		}
	case errors.As(err, &ve):
		d := map[string]any{"issues": ve.Issues}
		if names := ve.Unresolved(); len(names) > 0 {
			d["unresolved"] = names
		}
		return d
	case errors.As(err, &sm):
		d := map[string]any{"measurement_item_name_id": sm.NameID}
		if sm.Index != 0 {
			d["sample_index"] = sm.Index
		}
		return d
	case errors.As(err, &ie):
		d := map[string]any{"measurement_item_name_id": ie.NameID}
		var md *formula.MissingDataError
		if errors.As(err, &md) {
			d["missing_item"] = md.Item
			d["reason"] = md.Reason
			if md.Name != "" {
				d["missing_name"] = md.Name
			}
		}
		return d
	}
	return nil
}

func recordNotFound(id string) *Error {
	return &Error{
		Code:    ErrCodeRecordNotFound,
		Message: fmt.Sprintf("measurement record %s not found", id),
		Details: map[string]any{"measurement_id": id},
	}
}

func productNotFound(id string) *Error {
	return &Error{
		Code:    ErrCodeProductNotFound,
		Message: fmt.Sprintf("product %s not found", id),
		Details: map[string]any{"product_id": id},
	}
}

func invalidItems(names []string, def *product.Definition) *Error {
	return &Error{
		Code:    ErrCodeInvalidItem,
		Message: fmt.Sprintf("unknown measurement items: %v", names),
		Details: map[string]any{
			"invalid_measurement_items": names,
			"valid_measurement_items":   def.NameIDs(),
		},
	}
}

func invalidRequest(message string, details map[string]any) *Error {
	return &Error{Code: ErrCodeInvalidSamples, Message: message, Details: details}
}

// notFound translates store.ErrNotFound into the wire error for the
// record or product being read.
func notFound(err error, rec *Error) error {
	if errors.Is(err, store.ErrNotFound) {
		return rec
	}
	return err
}

// ErrorInfo is the wire form of an error.
type ErrorInfo struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Describe converts err to its wire form. Returns nil for a nil error.
func Describe(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var ee *Error
	if errors.As(err, &ee) {
		msg = ee.Message
	}
	return &ErrorInfo{Code: Code(err), Message: msg, Details: Details(err)}
}
