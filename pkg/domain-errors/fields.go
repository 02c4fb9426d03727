package domainerrors

import (
	"fmt"
	"strings"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FieldErrors aggregates every rejected field of a request. It is always a
// CodeValidation error and is rendered as the details list of a 400 response.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (fe *FieldErrors) Add(field, code, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message, Code: code})
}

// Merge appends all errors from other.
func (fe *FieldErrors) Merge(other FieldErrors) {
	*fe = append(*fe, other...)
}

// Has reports whether field was rejected.
func (fe FieldErrors) Has(field string) bool {
	for _, f := range fe {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when there are no field errors, so callers can write
// `return errs.Err()` without a typed-nil interface.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return Wrap(fe, CodeValidation, "Invalid request data")
}
