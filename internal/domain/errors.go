package domain

import (
	"errors"
	"fmt"
)

// KeyPrefix namespaces every key the service writes to the shared store.
const KeyPrefix = "postfilter:"

var (
	// ErrNotFound signals a missing resource (widget, item, term).
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals a missing or invalid forgery-prevention token.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidSubmission signals a submission that cannot be compiled at all.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidToken signals a filter token that failed verification.
	ErrInvalidToken = errors.New("invalid filter token")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnknownAction signals an unsupported ajax action.
	ErrUnknownAction = errors.New("unknown action")
)

// ValidationError wraps ErrInvalidSubmission with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidSubmission.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSubmission }

// NewValidationError creates a field-level submission error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
