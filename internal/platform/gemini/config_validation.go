package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/generation"
)

// validateConfig checks the settings both adapters need before a client is built.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "missing Gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.AnalysisModel == "" {
		return fmt.Errorf("%w: analysis model cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return fmt.Errorf("%w: image model cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.RequestTimeout <= 0 {
		logger.WarnContext(ctx, "invalid request timeout, using default",
			"value", cfg.RequestTimeout,
			"default", defaultRequestTimeout)
	}
	return nil
}
