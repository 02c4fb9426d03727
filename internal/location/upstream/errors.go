package upstream

import (
	"errors"
	"fmt"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
)

// ErrorCategory is the normalized upstream failure taxonomy.
type ErrorCategory string

const (
	// ErrorNotFound: the registry answered and has no location for the code.
	ErrorNotFound ErrorCategory = "not_found"
	// ErrorUnavailable: transport failure, non-2xx status or open circuit.
	ErrorUnavailable ErrorCategory = "unavailable"
	// ErrorTimeout: no answer within the per-call timeout.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorBadData: the registry answered with a body we cannot use.
	ErrorBadData ErrorCategory = "bad_data"
)

// LookupError wraps upstream failures with a normalized category.
type LookupError struct {
	Category   ErrorCategory
	PostalCode string
	Message    string
	Underlying error
}

func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("postal lookup %s [%s]: %s: %v", e.PostalCode, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("postal lookup %s [%s]: %s", e.PostalCode, e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// Outcome collapses the category into the resolution outcome: only a
// definitive answer from the registry is NotFound; everything else is
// Unavailable.
func (e *LookupError) Outcome() models.Outcome {
	if e.Category == ErrorNotFound {
		return models.OutcomeNotFound
	}
	return models.OutcomeUnavailable
}

func newLookupError(category ErrorCategory, code models.PostalCode, message string, underlying error) *LookupError {
	return &LookupError{
		Category:   category,
		PostalCode: code.String(),
		Message:    message,
		Underlying: underlying,
	}
}

// ErrCircuitOpen is wrapped by Unavailable errors returned without calling
// the registry.
var ErrCircuitOpen = errors.New("upstream circuit open")

// GetCategory extracts the category from err. Errors that are not
// LookupErrors report ErrorUnavailable.
func GetCategory(err error) ErrorCategory {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorUnavailable
}
