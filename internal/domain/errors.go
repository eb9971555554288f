package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidStatus is returned when a processing status is not valid.
	ErrInvalidStatus = errors.New("invalid processing status")

	// ErrInvalidJobType is returned when a job type is not one of the known types.
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrInvalidTransition is returned when a status change is not permitted
	// by the processing state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
