package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// Common errors returned by the task package
var (
	// ErrNotInitialized is returned when submitting to a runner that was never
	// constructed or has not been started.
	ErrNotInitialized = errors.New("task runner not initialized")

	// ErrQueueClosed is returned when submitting after shutdown.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrInvalidJob is returned for job descriptors that cannot be executed.
	ErrInvalidJob = errors.New("invalid job")

	// ErrDuplicateJob is returned when the entry already has a chain of the
	// same job type queued, running or waiting on a retry.
	ErrDuplicateJob = errors.New("job already in flight")

	// ErrTaskPanicked marks an attempt that ended in a panic.
	ErrTaskPanicked = errors.New("task panicked")

	ErrNilStore          = errors.New("entry store cannot be nil")
	ErrNilAnalyzer       = errors.New("analyzer cannot be nil")
	ErrNilImageGenerator = errors.New("image generator cannot be nil")
	ErrNilImageHost      = errors.New("image host cannot be nil")
	ErrNilFactory        = errors.New("task factory cannot be nil")
)

// RetryExhaustedError is the terminal failure of an attempt chain.
type RetryExhaustedError struct {
	JobType  domain.JobType
	EntryID  uuid.UUID
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s job for entry %s failed after %d attempt(s): %v",
		e.JobType, e.EntryID, e.Attempts, e.Err)
}

// Unwrap returns the error of the last attempt.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
