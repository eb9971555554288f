package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by generation implementations
var (
	// ErrGenerationFailed is returned when a generation request fails for any general reason
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidResponse is returned when a service response cannot be parsed or is empty
	ErrInvalidResponse = errors.New("invalid response from external service")

	// ErrContentBlocked is returned when the service refuses the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient external service failure")

	// ErrInvalidConfig is returned when a client configuration is invalid
	ErrInvalidConfig = errors.New("invalid generation configuration")
)

// ServiceError is an external service failure: a network error, a non-success
// response or an explicit error payload.
type ServiceError struct {
	Service string // e.g. "gemini", "imagen", "cloudinary"
	Op      string // e.g. "analyze", "generate_image", "upload"
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}
