package cloudinary

import (
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/generation"
)

// NewClient creates a Cloudinary client from cfg.
func NewClient(cfg config.ImageHostConfig) (*cloudinary.Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: cloud name, API key and API secret are required", generation.ErrInvalidConfig)
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloudinary client: %v", generation.ErrInvalidConfig, err)
	}
	// Share URLs are persisted and handed to clients, so they carry no SDK analytics query.
	cld.Config.URL.Analytics = false
	return cld, nil
}
