package cloudinary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
)

const serviceName = "cloudinary"

// uploadAPI is the part of the Cloudinary upload API the uploader uses.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Uploader implements generation.ImageHost.
type Uploader struct {
	api     uploadAPI
	folder  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.ImageHost = (*Uploader)(nil)

// NewUploader creates an uploader storing images under folder.
func NewUploader(api uploadAPI, folder string, timeout time.Duration, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Uploader{
		api:     api,
		folder:  folder,
		timeout: timeout,
		logger:  logger.With("component", "cloudinary_uploader"),
	}
}

// Upload stores image under name, replacing any previous image with that name
// so retries stay idempotent.
func (u *Uploader) Upload(ctx context.Context, name string, image *generation.Image) (*generation.HostedImage, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, generation.NewServiceError(serviceName, "upload",
			fmt.Errorf("%w: no image data", generation.ErrInvalidResponse))
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	result, err := u.api.Upload(callCtx, bytes.NewReader(image.Data), uploader.UploadParams{
		PublicID:  name,
		Folder:    u.folder,
		Overwrite: api.Bool(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(generation.ErrTransientFailure, err)
		} else {
			err = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return nil, generation.NewServiceError(serviceName, "upload", err)
	}
	if result == nil {
		return nil, generation.NewServiceError(serviceName, "upload",
			fmt.Errorf("%w: empty upload result", generation.ErrInvalidResponse))
	}
	if result.Error.Message != "" {
		return nil, generation.NewServiceError(serviceName, "upload",
			fmt.Errorf("%w: %s", generation.ErrGenerationFailed, result.Error.Message))
	}
	if result.SecureURL == "" || result.PublicID == "" {
		return nil, generation.NewServiceError(serviceName, "upload",
			fmt.Errorf("%w: upload result has no URL", generation.ErrInvalidResponse))
	}

	logger.FromContextOrDefault(ctx, u.logger).DebugContext(ctx, "image uploaded",
		"public_id", result.PublicID,
		"bytes", len(image.Data))
	return &generation.HostedImage{URL: result.SecureURL, PublicID: result.PublicID}, nil
}
