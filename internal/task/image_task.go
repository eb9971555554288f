package task

import (
	"context"
	"fmt"

	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/sharecard"
)

// ImageTask generates an illustration for an entry, uploads it and composes
// the share card on top of it.
type ImageTask struct {
	entryTask
	generator generation.ImageGenerator
	host      generation.ImageHost
	composer  generation.ImageComposer
	layout    sharecard.Layout
	branding  sharecard.Branding
}

var _ Task = (*ImageTask)(nil)

// Execute runs one image attempt.
func (t *ImageTask) Execute(ctx context.Context) (err error) {
	defer t.recoverPanic(ctx, &err)

	entry, err := t.begin(ctx)
	if err != nil {
		return err
	}

	prompt := t.prompt(ctx, entry)
	if prompt == "" {
		return t.fail(ctx, fmt.Errorf("%w: no image prompt available", ErrInvalidJob))
	}

	image, err := t.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return t.fail(ctx, err)
	}

	hosted, err := t.host.Upload(ctx, entry.ID.String(), image)
	if err != nil {
		return t.fail(ctx, err)
	}

	artifact := domain.ImageArtifact{URL: hosted.URL, PublicID: hosted.PublicID}
	if t.composer != nil {
		if title, subtitle, theme, ok := entry.ShareCardText(); ok {
			spec := sharecard.Compose(title, subtitle, theme, t.layout)
			recipe := sharecard.BuildRecipe(spec, hosted.PublicID, t.branding)
			shareURL, err := t.composer.Compose(ctx, recipe)
			if err != nil {
				return t.fail(ctx, err)
			}
			artifact.ShareImageURL = shareURL
		}
	}

	if err := t.store.CompleteImage(ctx, entry.ID, artifact, domain.NewSuccessRecord(t.job.Attempt)); err != nil {
		return t.fail(ctx, fmt.Errorf("failed to store image: %w", err))
	}
	t.publish(ctx, map[string]any{
		"image_status":      domain.StatusCompleted,
		"image_is_retrying": false,
		"image_url":         artifact.URL,
		"image_public_id":   artifact.PublicID,
		"share_image_url":   artifact.ShareImageURL,
	})
	t.logger.Info("image completed", "image_public_id", artifact.PublicID)
	return nil
}

// prompt resolves the prompt from the job, then the entry, then the analysis.
func (t *ImageTask) prompt(ctx context.Context, entry *domain.Entry) string {
	if t.job.Payload != "" {
		return t.job.Payload
	}
	if entry.ImagePrompt != "" {
		return entry.ImagePrompt
	}
	if entry.Analysis == nil {
		return ""
	}
	prompt := generation.BuildImagePrompt(entry.Analysis)
	if err := t.store.SetImagePrompt(ctx, entry.ID, prompt); err != nil {
		t.logger.Warn("failed to store image prompt", "error", err)
	}
	return prompt
}
