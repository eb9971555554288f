package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// Job describes one attempt of background work on one entry. It is a value:
// retries are new Jobs produced by Next.
type Job struct {
	ID                  uuid.UUID
	Type                domain.JobType
	EntryID             uuid.UUID
	OwnerID             uuid.UUID
	Payload             string // image prompt for image jobs
	Attempt             int
	MaxAttempts         int
	IsManuallyTriggered bool
	CreatedAt           time.Time
}

// NewJob creates the first attempt of a chain.
func NewJob(jobType domain.JobType, entryID, ownerID uuid.UUID, payload string, maxAttempts int) Job {
	return Job{
		ID:          uuid.New(),
		Type:        jobType,
		EntryID:     entryID,
		OwnerID:     ownerID,
		Payload:     payload,
		Attempt:     1,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now().UTC(),
	}
}

// Next returns the job for the following attempt of the same chain.
func (j Job) Next() Job {
	next := j
	next.ID = uuid.New()
	next.Attempt = j.Attempt + 1
	next.CreatedAt = time.Now().UTC()
	return next
}

// IsLastAttempt reports whether a failure of this attempt ends the chain.
func (j Job) IsLastAttempt() bool {
	return j.Attempt >= j.MaxAttempts
}

// Validate checks that the job can be executed.
func (j Job) Validate() error {
	if _, err := domain.ParseJobType(string(j.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if j.EntryID == uuid.Nil {
		return fmt.Errorf("%w: entry ID cannot be empty", ErrInvalidJob)
	}
	if j.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: owner ID cannot be empty", ErrInvalidJob)
	}
	if j.Attempt < 1 || j.MaxAttempts < 1 {
		return fmt.Errorf("%w: attempt %d of %d", ErrInvalidJob, j.Attempt, j.MaxAttempts)
	}
	return nil
}
