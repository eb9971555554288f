package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/store"
)

// EntryStore keeps entries in a map guarded by a mutex. Every method holds the
// lock for the whole mutation, so each call is atomic with respect to the others.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.Entry
	logger  *slog.Logger
	now     func() time.Time
}

// Compile-time check to ensure EntryStore implements store.EntryStore
var _ store.EntryStore = (*EntryStore)(nil)

// NewEntryStore creates an empty EntryStore.
// If logger is nil, a default logger will be used.
func NewEntryStore(logger *slog.Logger) *EntryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntryStore{
		entries: make(map[uuid.UUID]*domain.Entry),
		logger:  logger.With(slog.String("component", "entry_store"), slog.String("driver", "memory")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create implements store.EntryStore.
func (s *EntryStore) Create(ctx context.Context, entry *domain.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("%w: entry %s", store.ErrDuplicate, entry.ID)
	}
	s.entries[entry.ID] = cloneEntry(entry)

	s.logger.Debug("entry created", slog.String("entry_id", entry.ID.String()))
	return nil
}

// GetByID implements store.EntryStore. The returned entry is a copy.
func (s *EntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, store.ErrEntryNotFound
	}
	return cloneEntry(entry), nil
}

// MarkProcessing implements store.EntryStore.
func (s *EntryStore) MarkProcessing(ctx context.Context, id uuid.UUID, jobType domain.JobType) error {
	return s.update(id, func(e *domain.Entry) error {
		setStatus(e, jobType, domain.StatusProcessing)
		return nil
	})
}

// SetImagePrompt implements store.EntryStore.
func (s *EntryStore) SetImagePrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	return s.update(id, func(e *domain.Entry) error {
		e.ImagePrompt = prompt
		return nil
	})
}

// RecordFailure implements store.EntryStore.
func (s *EntryStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	jobType domain.JobType,
	record domain.AttemptRecord,
	terminal bool,
) error {
	return s.update(id, func(e *domain.Entry) error {
		appendAttempt(e, jobType, record)
		if terminal {
			setStatus(e, jobType, domain.StatusFailed)
			setRetrying(e, jobType, false)
		} else {
			setStatus(e, jobType, domain.StatusProcessing)
			setRetrying(e, jobType, true)
		}
		return nil
	})
}

// CompleteAnalysis implements store.EntryStore.
func (s *EntryStore) CompleteAnalysis(
	ctx context.Context,
	id uuid.UUID,
	result *domain.AnalysisResult,
	record domain.AttemptRecord,
) error {
	return s.update(id, func(e *domain.Entry) error {
		copied := *result
		e.Analysis = &copied
		appendAttempt(e, domain.JobTypeAnalysis, record)
		setStatus(e, domain.JobTypeAnalysis, domain.StatusCompleted)
		setRetrying(e, domain.JobTypeAnalysis, false)
		return nil
	})
}

// CompleteImage implements store.EntryStore.
func (s *EntryStore) CompleteImage(
	ctx context.Context,
	id uuid.UUID,
	artifact domain.ImageArtifact,
	record domain.AttemptRecord,
) error {
	return s.update(id, func(e *domain.Entry) error {
		e.ImageURL = artifact.URL
		e.ImagePublicID = artifact.PublicID
		e.ShareImageURL = artifact.ShareImageURL
		appendAttempt(e, domain.JobTypeImage, record)
		setStatus(e, domain.JobTypeImage, domain.StatusCompleted)
		setRetrying(e, domain.JobTypeImage, false)
		return nil
	})
}

// ClaimManualRetry implements store.EntryStore.
func (s *EntryStore) ClaimManualRetry(
	ctx context.Context,
	id, ownerID uuid.UUID,
	jobType domain.JobType,
	limit int,
) (int, error) {
	var count int
	err := s.update(id, func(e *domain.Entry) error {
		if e.OwnerID != ownerID {
			return store.ErrEntryNotFound
		}
		if e.Status(jobType) != domain.StatusFailed {
			return fmt.Errorf("%w: %s status is %s", domain.ErrInvalidTransition, jobType, e.Status(jobType))
		}
		if e.ManualRetries(jobType) >= limit {
			return store.ErrRetryLimitReached
		}
		if jobType == domain.JobTypeImage {
			e.ImageRetryCount++
		} else {
			e.RetryCount++
		}
		count = e.ManualRetries(jobType)
		setStatus(e, jobType, domain.StatusPending)
		setRetrying(e, jobType, false)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FindByStatus implements store.EntryStore.
func (s *EntryStore) FindByStatus(
	ctx context.Context,
	jobType domain.JobType,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*domain.Entry
	for _, e := range s.entries {
		if e.Status(jobType) == status {
			found = append(found, cloneEntry(e))
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (s *EntryStore) update(id uuid.UUID, mutate func(e *domain.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return store.ErrEntryNotFound
	}
	if err := mutate(entry); err != nil {
		return err
	}
	entry.UpdatedAt = s.now()
	return nil
}

func setStatus(e *domain.Entry, jobType domain.JobType, status domain.ProcessingStatus) {
	if jobType == domain.JobTypeImage {
		e.ImageStatus = status
		return
	}
	e.AnalysisStatus = status
}

func setRetrying(e *domain.Entry, jobType domain.JobType, retrying bool) {
	if jobType == domain.JobTypeImage {
		e.ImageIsRetrying = retrying
		return
	}
	e.AnalysisIsRetrying = retrying
}

func appendAttempt(e *domain.Entry, jobType domain.JobType, record domain.AttemptRecord) {
	if jobType == domain.JobTypeImage {
		e.ImageGenerationAttempts = append(e.ImageGenerationAttempts, record)
		return
	}
	e.AnalysisAttempts = append(e.AnalysisAttempts, record)
}

func cloneEntry(e *domain.Entry) *domain.Entry {
	c := *e
	c.AnalysisAttempts = append([]domain.AttemptRecord{}, e.AnalysisAttempts...)
	c.ImageGenerationAttempts = append([]domain.AttemptRecord{}, e.ImageGenerationAttempts...)
	if e.Analysis != nil {
		a := *e.Analysis
		c.Analysis = &a
	}
	return &c
}
