package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/reverie-api/internal/generation"
	"google.golang.org/genai"
)

// Error definitions for the gemini package.
var (
	// ErrEmptyText is returned when there is no entry text to analyze.
	ErrEmptyText = errors.New("entry text cannot be empty")

	// ErrEmptyPrompt is returned when an image prompt is empty.
	ErrEmptyPrompt = errors.New("image prompt cannot be empty")
)

// Service names used in generation.ServiceError.
const (
	serviceGemini = "gemini"
	serviceImagen = "imagen"
)

// classifyError maps a genai client error onto the generation error taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(generation.ErrTransientFailure, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if code, ok := apiErrorCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests,
			code == http.StatusRequestTimeout,
			code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: status %d: %v", generation.ErrTransientFailure, code, err)
		default:
			return fmt.Errorf("%w: status %d: %v", generation.ErrGenerationFailed, code, err)
		}
	}

	// Transport errors without a status are usually network hiccups.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
