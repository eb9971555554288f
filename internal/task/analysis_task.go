package task

import (
	"context"
	"fmt"

	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/validation"
)

// AnalysisTask asks the language model to analyze an entry's text, validates
// the payload and stores the result. On success it may chain the image job.
type AnalysisTask struct {
	entryTask
	analyzer  generation.Analyzer
	autoImage bool
}

var _ Task = (*AnalysisTask)(nil)

// Execute runs one analysis attempt.
func (t *AnalysisTask) Execute(ctx context.Context) (err error) {
	defer t.recoverPanic(ctx, &err)

	entry, err := t.begin(ctx)
	if err != nil {
		return err
	}

	payload, err := t.analyzer.Analyze(ctx, entry.Text)
	if err != nil {
		return t.fail(ctx, err)
	}

	result, err := validation.ValidateAnalysis(payload)
	if err != nil {
		return t.fail(ctx, err)
	}

	if err := t.store.CompleteAnalysis(ctx, entry.ID, result, domain.NewSuccessRecord(t.job.Attempt)); err != nil {
		return t.fail(ctx, fmt.Errorf("failed to store analysis: %w", err))
	}
	t.publish(ctx, map[string]any{
		"analysis_status":      domain.StatusCompleted,
		"analysis_is_retrying": false,
		"analysis":             result,
	})
	t.logger.Info("analysis completed", "personality_type", result.PersonalityType)

	if t.autoImage {
		t.chainImage(ctx, result)
	}
	return nil
}

// chainImage submits the image job for a freshly analyzed entry.
func (t *AnalysisTask) chainImage(ctx context.Context, result *domain.AnalysisResult) {
	prompt := generation.BuildImagePrompt(result)
	if err := t.store.SetImagePrompt(ctx, t.job.EntryID, prompt); err != nil {
		t.logger.Error("failed to store image prompt", "error", err)
	}
	if err := t.scheduler.SubmitImageJob(ctx, t.job.EntryID, prompt, t.job.OwnerID); err != nil {
		t.logger.Error("failed to submit image job", "error", err)
	}
}
