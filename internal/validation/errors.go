package validation

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is matched by every error returned from this package.
var ErrInvalidPayload = errors.New("invalid analysis payload")

// Error describes the first contract violation found in a payload.
type Error struct {
	// Field is the dotted path of the offending field. Empty for whole-payload problems.
	Field string
	// Reason is a short human readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidPayload, e.Reason)
	}
	return fmt.Sprintf("%s: field %s %s", ErrInvalidPayload, e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidPayload.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidPayload
}
