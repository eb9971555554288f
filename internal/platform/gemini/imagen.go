package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"google.golang.org/genai"
)

// ImageGenerator implements generation.ImageGenerator with an Imagen model.
type ImageGenerator struct {
	models  imageModel
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.ImageGenerator = (*ImageGenerator)(nil)

func newImageGenerator(models imageModel, model string, timeout time.Duration, logger *slog.Logger) *ImageGenerator {
	return &ImageGenerator{
		models:  models,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "imagen_generator"),
	}
}

// GenerateImage renders one square PNG illustration for prompt.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*generation.Image, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	if strings.TrimSpace(prompt) == "" {
		return nil, generation.NewServiceError(serviceImagen, "generate_image", ErrEmptyPrompt)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.models.GenerateImages(callCtx, g.model, prompt, &genai.GenerateImagesConfig{
		AspectRatio:    "1:1",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		log.WarnContext(ctx, "imagen call failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, generation.NewServiceError(serviceImagen, "generate_image", classifyError(err))
	}

	image, err := firstImage(resp)
	if err != nil {
		return nil, generation.NewServiceError(serviceImagen, "generate_image", err)
	}

	log.DebugContext(ctx, "imagen call succeeded",
		"model", g.model,
		"image_bytes", len(image.Data),
		"duration_ms", time.Since(start).Milliseconds())
	return image, nil
}

// firstImage returns the first usable image of resp.
func firstImage(resp *genai.GenerateImagesResponse) (*generation.Image, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("%w: no images generated", generation.ErrInvalidResponse)
	}

	var filtered string
	for _, generated := range resp.GeneratedImages {
		if generated == nil {
			continue
		}
		if generated.RAIFilteredReason != "" {
			filtered = generated.RAIFilteredReason
			continue
		}
		if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := generated.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &generation.Image{Data: generated.Image.ImageBytes, MIMEType: mime}, nil
	}

	if filtered != "" {
		return nil, fmt.Errorf("%w: %s", generation.ErrContentBlocked, filtered)
	}
	return nil, fmt.Errorf("%w: generated image has no data", generation.ErrInvalidResponse)
}
