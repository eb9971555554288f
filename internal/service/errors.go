package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is().
var (
	// ErrEntryNotFound indicates the entry does not exist or belongs to another owner.
	// Ownership failures are reported as not found so they do not reveal which entry IDs exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrInvalidEntry indicates the submitted entry failed validation.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrRetryNotAllowed indicates a manual retry was requested for a lifecycle
	// that is not in the failed status, or that has nothing to retry with.
	// API layer should map this to HTTP 409 Conflict.
	ErrRetryNotAllowed = errors.New("retry not allowed in current status")

	// ErrManualRetryLimit is matched by every ManualRetryDeniedError.
	ErrManualRetryLimit = errors.New("manual retry limit reached")
)

// ManualRetryDeniedError is returned when the manual retry counter of a
// lifecycle has reached its limit. API layer should map this to HTTP 429.
type ManualRetryDeniedError struct {
	JobType domain.JobType
	EntryID uuid.UUID
	Limit   int
}

// Error implements the error interface.
func (e *ManualRetryDeniedError) Error() string {
	return fmt.Sprintf("%s retry denied for entry %s: limit of %d manual retries reached",
		e.JobType, e.EntryID, e.Limit)
}

// Unwrap allows errors.Is(err, ErrManualRetryLimit).
func (e *ManualRetryDeniedError) Unwrap() error {
	return ErrManualRetryLimit
}

// EntryServiceError wraps errors from the entry service with context.
type EntryServiceError struct {
	// Operation is the operation that failed (e.g., "create_entry", "retry_image")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for EntryServiceError.
func (e *EntryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entry service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("entry service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *EntryServiceError) Unwrap() error {
	return e.Err
}

// NewEntryServiceError creates a new EntryServiceError.
// Store and domain conditions that have a service-level meaning are returned
// as the matching sentinel instead of being wrapped.
func NewEntryServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrEntryNotFound), store.IsNotFoundError(err):
		return ErrEntryNotFound
	case errors.Is(err, ErrRetryNotAllowed), errors.Is(err, domain.ErrInvalidTransition):
		return ErrRetryNotAllowed
	}

	return &EntryServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
