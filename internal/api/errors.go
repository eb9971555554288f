package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/service"
	"github.com/phrazzld/reverie-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrEntryNotFound):
		return http.StatusNotFound

	// Retry errors
	case errors.Is(err, service.ErrManualRetryLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrRetryNotAllowed):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrInvalidEntry),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "User ID not found or invalid"
	case errors.Is(err, service.ErrEntryNotFound):
		return "Entry not found"
	case errors.Is(err, service.ErrManualRetryLimit):
		return "Manual retry limit reached"
	case errors.Is(err, service.ErrRetryNotAllowed):
		return "Entry cannot be retried in its current state"
	case errors.Is(err, domain.ErrEmptyEntryText):
		return "Entry text cannot be empty"
	case errors.Is(err, service.ErrInvalidEntry):
		return "Invalid entry"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. defaultMsg, when
// set, replaces the message of internal server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field and rule.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	fe := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
