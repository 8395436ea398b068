package product

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation issue codes (E200-E299).
const (
	ErrFormulaSyntax      = "E201" // formula text does not parse
	ErrUndefinedReference = "E202" // name not declared anywhere in scope
	ErrAggregateArgument  = "E203" // aggregate applied to something other than a series
	ErrForwardReference   = "E204" // name declared later in the list, or the item itself
	ErrDuplicateName      = "E205" // name_id or local name declared twice
	ErrRequiredField      = "E206" // required field missing
	ErrInvalidValue       = "E207" // enum or numeric field out of range
	ErrInvalidRule        = "E208" // rule evaluation setting inconsistent
	ErrInvalidSetting     = "E209" // combination of settings not allowed
	ErrSeriesAsScalar     = "E210" // per-sample series used without an aggregate
)

// Issue is one problem found in a definition.
type Issue struct {
	NameID  string `json:"measurement_item_name_id,omitempty"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Reference is the unresolved name for E202 and E204.
	Reference string `json:"reference,omitempty"`
}

func (i Issue) String() string {
	if i.NameID == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Code, i.Field, i.Message)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", i.Code, i.NameID, i.Field, i.Message)
}

// ValidationError collects every issue found in one pass over a definition.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues)+1)
	if names := e.Unresolved(); len(names) > 0 {
		parts = append(parts, "formula references undefined names: "+strings.Join(names, ", "))
	}
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	return fmt.Sprintf("invalid product definition (%d issue(s)): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Unresolved returns every unresolved reference across all items, sorted
// and without duplicates.
func (e *ValidationError) Unresolved() []string {
	seen := map[string]bool{}
	for _, is := range e.Issues {
		if is.Reference != "" && (is.Code == ErrUndefinedReference || is.Code == ErrForwardReference) {
			seen[is.Reference] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByItem groups issues by measurement item name_id. Issues not tied to an
// item are keyed by "".
func (e *ValidationError) ByItem() map[string][]Issue {
	out := map[string][]Issue{}
	for _, is := range e.Issues {
		out[is.NameID] = append(out[is.NameID], is)
	}
	return out
}

// HasSyntaxErrors reports whether any formula failed to parse.
func (e *ValidationError) HasSyntaxErrors() bool {
	for _, is := range e.Issues {
		if is.Code == ErrFormulaSyntax {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
