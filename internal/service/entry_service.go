package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/store"
	"github.com/phrazzld/reverie-api/internal/task"
)

// DefaultManualRetryLimit is the number of manual retries allowed per lifecycle.
const DefaultManualRetryLimit = 3

// JobSubmitter is the part of the task runner the service uses to enqueue work.
type JobSubmitter interface {
	// NewJob creates the first attempt of a chain
	NewJob(jobType domain.JobType, entryID, ownerID uuid.UUID, payload string) task.Job

	// Submit adds a job to the processing queue
	Submit(ctx context.Context, job task.Job) error
}

// EntryService provides entry-related operations
type EntryService interface {
	// CreateEntry persists a new pending entry, announces it and submits its analysis job
	CreateEntry(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error)

	// GetEntry retrieves an entry owned by ownerID
	GetEntry(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)

	// RetryAnalysis starts a new analysis chain for a failed entry
	RetryAnalysis(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)

	// RetryImage starts a new image chain for an entry whose image generation failed
	RetryImage(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)
}

// EntryServiceConfig holds tunables of the entry service
type EntryServiceConfig struct {
	// ManualRetryLimit caps manual retries per lifecycle. Zero selects DefaultManualRetryLimit.
	ManualRetryLimit int
}

// entryServiceImpl implements the EntryService interface
type entryServiceImpl struct {
	store     store.EntryStore
	submitter JobSubmitter
	notifier  notify.Notifier
	config    EntryServiceConfig
	logger    *slog.Logger
}

// NewEntryService creates a new EntryService.
// It returns an error if any of the required dependencies are nil.
// The notifier is optional.
func NewEntryService(
	entryStore store.EntryStore,
	submitter JobSubmitter,
	notifier notify.Notifier,
	config EntryServiceConfig,
	logger *slog.Logger,
) (EntryService, error) {
	if entryStore == nil {
		return nil, &EntryServiceError{Operation: "create_service", Message: "entryStore cannot be nil"}
	}
	if submitter == nil {
		return nil, &EntryServiceError{Operation: "create_service", Message: "submitter cannot be nil"}
	}
	if config.ManualRetryLimit <= 0 {
		config.ManualRetryLimit = DefaultManualRetryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &entryServiceImpl{
		store:     entryStore,
		submitter: submitter,
		notifier:  notifier,
		config:    config,
		logger:    logger.With("component", "entry_service"),
	}, nil
}

// CreateEntry creates a new entry with pending status, publishes entity-added
// and submits the analysis job.
func (s *entryServiceImpl) CreateEntry(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := domain.NewEntry(ownerID, strings.TrimSpace(text))
	if err != nil {
		log.Debug("rejected invalid entry", "error", err, "owner_id", ownerID)
		return nil, errors.Join(ErrInvalidEntry, err)
	}

	if err := s.store.Create(ctx, entry); err != nil {
		log.Error("failed to save entry", "error", err, "owner_id", ownerID, "entry_id", entry.ID)
		return nil, NewEntryServiceError("create_entry", "failed to save entry", err)
	}

	s.publish(ctx, notify.NewEntityAdded(entry))

	job := s.submitter.NewJob(domain.JobTypeAnalysis, entry.ID, ownerID, "")
	if err := s.submitter.Submit(ctx, job); err != nil && !errors.Is(err, task.ErrDuplicateJob) {
		// The entry stays pending and is re-admitted on the next recovery pass.
		log.Error("failed to submit analysis job", "error", err, "entry_id", entry.ID)
		return entry, NewEntryServiceError("create_entry", "failed to submit analysis job", err)
	}

	log.Info("entry created", "entry_id", entry.ID, "owner_id", ownerID)
	return entry, nil
}

// GetEntry retrieves an entry, reporting entries of other owners as not found.
func (s *entryServiceImpl) GetEntry(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	entry, err := s.store.GetByID(ctx, entryID)
	if err != nil {
		return nil, NewEntryServiceError("get_entry", "failed to load entry", err)
	}
	if entry.OwnerID != ownerID {
		logger.FromContextOrDefault(ctx, s.logger).Warn("entry requested by non-owner",
			"entry_id", entryID,
			"owner_id", ownerID)
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// RetryAnalysis starts a new analysis chain.
func (s *entryServiceImpl) RetryAnalysis(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	return s.retry(ctx, domain.JobTypeAnalysis, ownerID, entryID)
}

// RetryImage starts a new image chain with the prompt stored on the entry, or
// one rebuilt from its analysis.
func (s *entryServiceImpl) RetryImage(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	return s.retry(ctx, domain.JobTypeImage, ownerID, entryID)
}

func (s *entryServiceImpl) retry(
	ctx context.Context,
	jobType domain.JobType,
	ownerID, entryID uuid.UUID,
) (*domain.Entry, error) {
	op := "retry_" + string(jobType)
	log := logger.FromContextOrDefault(ctx, s.logger).With("entry_id", entryID, "job_type", jobType)

	entry, err := s.GetEntry(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status(jobType) != domain.StatusFailed {
		return nil, ErrRetryNotAllowed
	}

	var payload string
	if jobType == domain.JobTypeImage {
		payload = entry.ImagePrompt
		if payload == "" && entry.Analysis != nil {
			payload = generation.BuildImagePrompt(entry.Analysis)
		}
		if payload == "" {
			log.Warn("image retry requested without analysis")
			return nil, ErrRetryNotAllowed
		}
	}

	count, err := s.store.ClaimManualRetry(ctx, entryID, ownerID, jobType, s.config.ManualRetryLimit)
	if err != nil {
		if errors.Is(err, store.ErrRetryLimitReached) {
			log.Info("manual retry denied", "limit", s.config.ManualRetryLimit)
			return nil, &ManualRetryDeniedError{JobType: jobType, EntryID: entryID, Limit: s.config.ManualRetryLimit}
		}
		return nil, NewEntryServiceError(op, "failed to claim manual retry", err)
	}

	s.publish(ctx, notify.NewEntityUpdate(jobType, ownerID, entryID, retryFields(jobType, count)))

	job := s.submitter.NewJob(jobType, entryID, ownerID, payload)
	job.IsManuallyTriggered = true
	if err := s.submitter.Submit(ctx, job); err != nil {
		log.Error("failed to submit manual retry", "error", err)
		return nil, NewEntryServiceError(op, "failed to submit job", err)
	}

	log.Info("manual retry submitted", "retry_count", count)
	return s.GetEntry(ctx, ownerID, entryID)
}

func retryFields(jobType domain.JobType, count int) map[string]any {
	if jobType == domain.JobTypeImage {
		return map[string]any{
			"image_status":      domain.StatusPending,
			"image_retry_count": count,
			"image_is_retrying": false,
		}
	}
	return map[string]any{
		"analysis_status":      domain.StatusPending,
		"retry_count":          count,
		"analysis_is_retrying": false,
	}
}

// publish is best effort: errors are logged and dropped.
func (s *entryServiceImpl) publish(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to publish event",
			"event_type", event.Type,
			"entry_id", event.EntityID,
			"error", err)
	}
}
