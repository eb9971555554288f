package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// EntryStore defines persistence of journal entries and their processing state.
//
// Every mutating method is a field-scoped atomic update: implementations must
// never read the whole entry, modify it and write it back, because two jobs for
// the same entry (an analysis and an image job, or duplicate submissions) may run
// concurrently. Attempt records are appended atomically.
// Version: 1.0
type EntryStore interface {
	// Create saves a new entry. Returns validation errors from the domain Entry if data is invalid.
	Create(ctx context.Context, entry *domain.Entry) error

	// GetByID retrieves an entry by its unique ID.
	// Returns ErrEntryNotFound if the entry does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error)

	// MarkProcessing sets the lifecycle status of jobType to processing.
	MarkProcessing(ctx context.Context, id uuid.UUID, jobType domain.JobType) error

	// SetImagePrompt stores the prompt used for image generation so that later
	// retries and recovery can reuse it.
	SetImagePrompt(ctx context.Context, id uuid.UUID, prompt string) error

	// RecordFailure appends a failed attempt record. When terminal is false the
	// status stays processing and the retrying flag is set; when terminal is true
	// the status becomes failed and the retrying flag is cleared.
	RecordFailure(ctx context.Context, id uuid.UUID, jobType domain.JobType, record domain.AttemptRecord, terminal bool) error

	// CompleteAnalysis persists the analysis result, appends record and marks the
	// analysis lifecycle completed.
	CompleteAnalysis(ctx context.Context, id uuid.UUID, result *domain.AnalysisResult, record domain.AttemptRecord) error

	// CompleteImage persists the hosted image, appends record and marks the image
	// lifecycle completed.
	CompleteImage(ctx context.Context, id uuid.UUID, artifact domain.ImageArtifact, record domain.AttemptRecord) error

	// ClaimManualRetry atomically increments the manual retry counter of jobType
	// and resets the status to pending, provided the entry belongs to ownerID, is
	// in the failed status and its counter is below limit.
	// Returns the new counter value, ErrEntryNotFound, ErrRetryLimitReached or
	// domain.ErrInvalidTransition.
	ClaimManualRetry(ctx context.Context, id, ownerID uuid.UUID, jobType domain.JobType, limit int) (int, error)

	// FindByStatus lists up to limit entries whose jobType lifecycle has status,
	// oldest first.
	FindByStatus(ctx context.Context, jobType domain.JobType, status domain.ProcessingStatus, limit int) ([]*domain.Entry, error)
}
