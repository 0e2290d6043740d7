package core

// validation.go defines the field-level error values produced by Normalize.
//
// Validation happens at two levels:
//  1. Errors: blocking problems (missing required field, unmapped label,
//     unparseable date). A record with any error never reaches duplicate
//     detection or commit.
//  2. Warnings: recoverable problems that were auto-corrected, such as an
//     unknown unit replaced by the default.

import "fmt"

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`   // Canonical field name
	Message string `json:"message"` // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Messages shared by every source path.
const (
	msgRequired     = "required field is empty"
	msgInvalidDate  = "invalid date (use YYYY/MM/DD or YYYY-MM-DD)"
	msgInvalidCount = "must be a number of 1 or more"
	msgUnknownUnit  = "unrecognized unit replaced with default"
)

func msgUnknownLabel(value string) string {
	return fmt.Sprintf("unrecognized value %q", value)
}

func requiredError(field string) ValidationError {
	return ValidationError{Field: field, Message: msgRequired}
}

// FieldErrors returns the errors attached to field, in order.
func (c CandidateRecord) FieldErrors(field string) []ValidationError {
	var out []ValidationError
	for _, e := range c.Errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// FieldWarnings returns the warnings attached to field, in order.
func (c CandidateRecord) FieldWarnings(field string) []ValidationWarning {
	var out []ValidationWarning
	for _, w := range c.Warnings {
		if w.Field == field {
			out = append(out, w)
		}
	}
	return out
}
