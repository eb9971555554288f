package generation

import (
	"context"

	"github.com/phrazzld/reverie-api/internal/sharecard"
)

// Analyzer produces a structured analysis payload for journal text.
type Analyzer interface {
	// Analyze returns the raw JSON payload produced by the model. The payload
	// is untrusted and must be validated before use.
	Analyze(ctx context.Context, text string) ([]byte, error)
}

// Image is an encoded image returned by an image model.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator turns a text prompt into an encoded image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// HostedImage is an uploaded image.
type HostedImage struct {
	URL      string
	PublicID string
}

// ImageHost stores encoded images and returns a permanent URL and a stable identifier.
type ImageHost interface {
	Upload(ctx context.Context, name string, image *Image) (*HostedImage, error)
}

// ImageComposer renders an overlay recipe into a composed-image URL.
type ImageComposer interface {
	Compose(ctx context.Context, recipe sharecard.Recipe) (string, error)
}
