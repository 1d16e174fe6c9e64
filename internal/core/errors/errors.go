// Package errors provides centralized error definitions for the application.
//
// Naming conventions:
//   - Exported errors (Err*): for errors that callers check with errors.Is
//   - Sentinel errors are variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinels with context
package errors

import (
	"errors"
	"fmt"
)

// Caller errors, surfaced as client-error responses.
var (
	// ErrUnsupportedService indicates the requested research service is not configured.
	ErrUnsupportedService = errors.New("unsupported research service")

	// ErrInvalidModel indicates the requested model is not configured for the service.
	ErrInvalidModel = errors.New("invalid model for service")

	// ErrNotFound indicates a job or item does not exist or does not belong to the caller.
	ErrNotFound = errors.New("not found")

	// ErrOrgRequired indicates org visibility was requested without an owner org.
	ErrOrgRequired = errors.New("org visibility requires an organization")
)

// Processing-state signals.
var (
	// ErrAlreadyProcessing indicates another worker holds the enrichment lock
	// for the item. It is a normal outcome, not a failure.
	ErrAlreadyProcessing = errors.New("item is already being processed")
)

// Infrastructure errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrCacheNotFound indicates a cache entry was not found.
	ErrCacheNotFound = errors.New("cache entry not found")
)

// ProviderError carries a non-success response from the external research
// provider. The upstream status and body are preserved so the API layer can
// surface them to the client.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("research provider returned status %d: %s", e.StatusCode, e.Body)
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
