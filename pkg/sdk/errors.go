package postfilter

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrForbidden         = domain.ErrForbidden
	ErrInvalidSubmission = domain.ErrInvalidSubmission
	ErrInvalidToken      = domain.ErrInvalidToken
	ErrRateLimited       = domain.ErrRateLimited
	ErrUnknownAction     = domain.ErrUnknownAction

	// ErrInFlight is returned when a container already runs a transport.
	ErrInFlight = pagination.ErrInFlight
	// ErrExhausted is returned when a container has no further pages.
	ErrExhausted = pagination.ErrExhausted
	// ErrUnknownContainer is returned for disposed or never registered containers.
	ErrUnknownContainer = errors.New("postfilter: unknown container")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postfilter: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the error code onto the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "access_denied":
		return ErrForbidden
	case "not_found":
		return ErrNotFound
	case "validation_failed":
		return ErrInvalidSubmission
	case "invalid_token":
		return ErrInvalidToken
	case "rate_limited":
		return ErrRateLimited
	}
	return nil
}
