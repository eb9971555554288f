package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/generation"
	"google.golang.org/genai"
)

const defaultRequestTimeout = 60 * time.Second

// contentModel is the part of genai.Models the analyzer uses.
type contentModel interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// imageModel is the part of genai.Models the image generator uses.
type imageModel interface {
	GenerateImages(
		ctx context.Context,
		model string,
		prompt string,
		config *genai.GenerateImagesConfig,
	) (*genai.GenerateImagesResponse, error)
}

// NewAdapters validates cfg, creates one genai client and returns the
// analyzer and image generator sharing it.
func NewAdapters(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Analyzer, *ImageGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	tmpl, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, nil, err
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	analyzer := newAnalyzer(client.Models, cfg.AnalysisModel, tmpl, timeout, logger)
	images := newImageGenerator(client.Models, cfg.ImageModel, timeout, logger)
	logger.InfoContext(ctx, "gemini adapters initialized",
		"analysis_model", cfg.AnalysisModel,
		"image_model", cfg.ImageModel)
	return analyzer, images, nil
}
