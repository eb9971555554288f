package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/redact"
	"github.com/phrazzld/reverie-api/internal/store"
)

// entryTask holds what analysis and image tasks share: the job, persistence,
// notification and the retry decision.
type entryTask struct {
	id         uuid.UUID
	job        Job
	store      store.EntryStore
	notifier   notify.Notifier
	scheduler  Scheduler
	retryDelay time.Duration
	// publishTimeout bounds each notifier call so a slow broker cannot hold a worker.
	publishTimeout time.Duration
	logger         *slog.Logger
}

// ID returns the task's unique identifier
func (t *entryTask) ID() uuid.UUID {
	return t.id
}

// Type returns the job type the task executes
func (t *entryTask) Type() domain.JobType {
	return t.job.Type
}

// Job returns the job descriptor the task was created from
func (t *entryTask) Job() Job {
	return t.job
}

// statusField and retryingField name the persisted fields of the task's lifecycle.
func (t *entryTask) statusField() string {
	return string(t.job.Type) + "_status"
}

func (t *entryTask) retryingField() string {
	return string(t.job.Type) + "_is_retrying"
}

// begin loads the entry and moves the lifecycle to processing.
func (t *entryTask) begin(ctx context.Context) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("task cancelled by context: %w", err)
	}

	entry, err := t.store.GetByID(ctx, t.job.EntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}

	if err := t.store.MarkProcessing(ctx, t.job.EntryID, t.job.Type); err != nil {
		return nil, fmt.Errorf("failed to mark entry processing: %w", err)
	}
	t.publish(ctx, map[string]any{
		t.statusField(): domain.StatusProcessing,
	})

	t.logger.Info("processing attempt",
		"max_attempts", t.job.MaxAttempts,
		"manual", t.job.IsManuallyTriggered)
	return entry, nil
}

// fail records a failed attempt and either schedules the next attempt or ends
// the chain. Only the terminal outcome is returned as an error.
func (t *entryTask) fail(ctx context.Context, cause error) error {
	record := domain.NewFailureRecord(t.job.Attempt, cause)
	terminal := t.job.IsLastAttempt()

	if err := t.store.RecordFailure(ctx, t.job.EntryID, t.job.Type, record, terminal); err != nil {
		t.logger.Error("failed to record failed attempt", "error", err, "cause", cause)
		return fmt.Errorf("failed to record failed attempt: %w (cause: %v)", err, cause)
	}

	status := domain.StatusProcessing
	if terminal {
		status = domain.StatusFailed
	}
	t.publish(ctx, map[string]any{
		t.statusField():   status,
		t.retryingField(): !terminal,
		"error":           redact.Error(cause),
		"attempt":         t.job.Attempt,
	})

	if terminal {
		return &RetryExhaustedError{
			JobType:  t.job.Type,
			EntryID:  t.job.EntryID,
			Attempts: t.job.Attempt,
			Err:      cause,
		}
	}

	t.logger.Warn("attempt failed, retry scheduled",
		"error", cause,
		"retry_in", t.retryDelay)
	if err := t.scheduler.SubmitAfter(t.job.Next(), t.retryDelay); err != nil {
		t.logger.Error("failed to schedule retry", "error", err)
	}
	return nil
}

// recoverPanic turns a panic during an attempt into a failed attempt so the
// lifecycle never stays processing. It must be deferred by Execute.
func (t *entryTask) recoverPanic(ctx context.Context, err *error) {
	if r := recover(); r != nil {
		t.logger.Error("attempt panicked", "panic", r)
		*err = t.fail(ctx, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
	}
}

// publish sends a partial update. Notification failures never fail the task.
func (t *entryTask) publish(ctx context.Context, fields map[string]any) {
	if t.notifier == nil {
		t.logger.Warn("event not published", "error", notify.ErrNotInitialized)
		return
	}
	event := notify.NewEntityUpdate(t.job.Type, t.job.OwnerID, t.job.EntryID, fields)

	ctx, cancel := context.WithTimeout(ctx, t.publishTimeout)
	defer cancel()
	if err := t.notifier.Publish(ctx, event); err != nil {
		t.logger.Warn("event not published", "event_type", event.Type, "error", err)
	}
}
