package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/store"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// AnalysisWorkers bounds concurrently running analysis jobs
	AnalysisWorkers int

	// ImageWorkers bounds concurrently running image jobs
	ImageWorkers int

	// AnalysisMaxAttempts is the length of an automatic analysis chain
	AnalysisMaxAttempts int

	// ImageMaxAttempts is the length of an automatic image chain
	ImageMaxAttempts int

	// RecoveryBatchSize caps how many entries per status Recover re-admits
	RecoveryBatchSize int

	// RecoveryStaleAfter is how long an unfinished entry must go without an
	// update before Recover re-admits it. Zero recovers every unfinished entry.
	RecoveryStaleAfter time.Duration

	// RecoveryInterval is the period of the background recovery sweep.
	// Zero limits recovery to Start.
	RecoveryInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		AnalysisWorkers:     3,
		ImageWorkers:        2,
		AnalysisMaxAttempts: 1,
		ImageMaxAttempts:    3,
		RecoveryBatchSize:   500,
		RecoveryStaleAfter:  5 * time.Minute,
		RecoveryInterval:    time.Minute,
	}
}

// TaskRunner manages background task processing: one queue and one worker
// pool per job type, and the timers of scheduled retries.
type TaskRunner struct {
	store   store.EntryStore
	factory TaskFactory
	config  TaskRunnerConfig
	logger  *slog.Logger

	queues map[domain.JobType]*TaskQueue
	pools  map[domain.JobType]*WorkerPool

	mu      sync.Mutex
	started bool
	stopped bool
	timers  map[*time.Timer]chainKey
	chains  map[chainKey]int

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// chainKey identifies the attempt chain of one job type on one entry. At most
// one chain per key is queued, running or waiting on a retry timer.
type chainKey struct {
	entryID uuid.UUID
	jobType domain.JobType
}

func keyOf(job Job) chainKey {
	return chainKey{entryID: job.EntryID, jobType: job.Type}
}

var _ Scheduler = (*TaskRunner)(nil)

// NewTaskRunner creates a new TaskRunner. The runner accepts jobs once Start
// has been called.
func NewTaskRunner(
	entryStore store.EntryStore,
	factory TaskFactory,
	config TaskRunnerConfig,
	logger *slog.Logger,
) (*TaskRunner, error) {
	if entryStore == nil {
		return nil, ErrNilStore
	}
	if factory == nil {
		return nil, ErrNilFactory
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.AnalysisMaxAttempts < 1 {
		config.AnalysisMaxAttempts = 1
	}
	if config.ImageMaxAttempts < 1 {
		config.ImageMaxAttempts = 1
	}

	log := logger.With("component", "task_runner")
	r := &TaskRunner{
		store:   entryStore,
		factory: factory,
		config:  config,
		logger:  log,
		queues:  make(map[domain.JobType]*TaskQueue, len(domain.JobTypes)),
		pools:   make(map[domain.JobType]*WorkerPool, len(domain.JobTypes)),
		timers:  make(map[*time.Timer]chainKey),
		chains:  make(map[chainKey]int),
	}

	workers := map[domain.JobType]int{
		domain.JobTypeAnalysis: config.AnalysisWorkers,
		domain.JobTypeImage:    config.ImageWorkers,
	}
	for _, jobType := range domain.JobTypes {
		poolLogger := log.With("job_type", jobType)
		queue := NewTaskQueue(poolLogger)
		pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: workers[jobType]}, poolLogger)
		r.queues[jobType] = queue
		r.pools[jobType] = pool
	}

	return r, nil
}

// SetErrorHandler installs handler on every worker pool. It must be called before Start.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	for _, pool := range r.pools {
		pool.SetErrorHandler(handler)
	}
}

// MaxAttempts returns the automatic chain length for jobType.
func (r *TaskRunner) MaxAttempts(jobType domain.JobType) int {
	if jobType == domain.JobTypeImage {
		return r.config.ImageMaxAttempts
	}
	return r.config.AnalysisMaxAttempts
}

// NewJob creates the first attempt of a chain using the configured chain length.
func (r *TaskRunner) NewJob(jobType domain.JobType, entryID, ownerID uuid.UUID, payload string) Job {
	return NewJob(jobType, entryID, ownerID, payload, r.MaxAttempts(jobType))
}

// Submit starts a new chain for job and returns immediately. It returns
// ErrDuplicateJob when the entry already has a chain of the same type queued,
// running or waiting on a retry.
func (r *TaskRunner) Submit(ctx context.Context, job Job) error {
	if r == nil {
		return ErrNotInitialized
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if err := r.acquire(job); err != nil {
		return err
	}
	return r.enqueue(job)
}

// enqueue queues job on behalf of a chain reference the caller already holds.
// The reference is dropped if the job cannot be queued.
func (r *TaskRunner) enqueue(job Job) error {
	task, err := r.factory.CreateTask(job, r)
	if err != nil {
		r.release(job)
		return fmt.Errorf("failed to create %s task: %w", job.Type, err)
	}
	if err := r.queues[job.Type].Enqueue(&trackedTask{Task: task, runner: r}); err != nil {
		r.release(job)
		return err
	}
	return nil
}

// acquire claims the chain of job if it is free.
func (r *TaskRunner) acquire(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.acceptingLocked(); err != nil {
		return err
	}
	key := keyOf(job)
	if r.chains[key] > 0 {
		return fmt.Errorf("%w: %s job for entry %s", ErrDuplicateJob, job.Type, job.EntryID)
	}
	r.chains[key] = 1
	return nil
}

// release drops one reference to the chain of job.
func (r *TaskRunner) release(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(keyOf(job))
}

func (r *TaskRunner) releaseLocked(key chainKey) {
	if r.chains[key] <= 1 {
		delete(r.chains, key)
		return
	}
	r.chains[key]--
}

// InFlight reports whether the entry has a chain of jobType queued, running or
// waiting on a retry.
func (r *TaskRunner) InFlight(entryID uuid.UUID, jobType domain.JobType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chains[chainKey{entryID: entryID, jobType: jobType}] > 0
}

// trackedTask holds a chain reference while its attempt is queued or running.
// A retry scheduled during Execute takes its own reference first, so the chain
// stays claimed across the delay.
type trackedTask struct {
	Task
	runner *TaskRunner
}

func (t *trackedTask) Execute(ctx context.Context) error {
	defer t.runner.release(t.Job())
	return t.Task.Execute(ctx)
}

// SubmitAnalysisJob submits the first attempt of an analysis job.
func (r *TaskRunner) SubmitAnalysisJob(ctx context.Context, entryID, ownerID uuid.UUID) error {
	if r == nil {
		return ErrNotInitialized
	}
	return r.Submit(ctx, r.NewJob(domain.JobTypeAnalysis, entryID, ownerID, ""))
}

// SubmitImageJob submits the first attempt of an image job.
func (r *TaskRunner) SubmitImageJob(ctx context.Context, entryID uuid.UUID, prompt string, ownerID uuid.UUID) error {
	if r == nil {
		return ErrNotInitialized
	}
	return r.Submit(ctx, r.NewJob(domain.JobTypeImage, entryID, ownerID, prompt))
}

// SubmitAfter submits job once delay has elapsed. The wait does not occupy a
// worker, and the chain of job stays claimed until the retry has run.
func (r *TaskRunner) SubmitAfter(job Job, delay time.Duration) error {
	if r == nil {
		return ErrNotInitialized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.acceptingLocked(); err != nil {
		return err
	}

	key := keyOf(job)
	r.chains[key]++

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		if _, ok := r.timers[timer]; !ok {
			r.mu.Unlock()
			return
		}
		delete(r.timers, timer)
		r.mu.Unlock()

		if err := r.enqueue(job); err != nil {
			r.logger.Warn("failed to submit scheduled retry",
				"job_type", job.Type,
				"entry_id", job.EntryID,
				"attempt", job.Attempt,
				"error", err)
		}
	})
	r.timers[timer] = key

	r.logger.Debug("retry scheduled",
		"job_type", job.Type,
		"entry_id", job.EntryID,
		"attempt", job.Attempt,
		"delay", delay)
	return nil
}

// Start starts the worker pools and re-admits unfinished entries.
func (r *TaskRunner) Start(ctx context.Context) error {
	if r == nil {
		return ErrNotInitialized
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrQueueClosed
	}
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	for _, jobType := range domain.JobTypes {
		r.pools[jobType].Start()
	}

	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	if r.config.RecoveryInterval > 0 {
		stop, done := make(chan struct{}), make(chan struct{})
		r.mu.Lock()
		r.sweepStop, r.sweepDone = stop, done
		r.mu.Unlock()
		go r.sweep(r.config.RecoveryInterval, stop, done)
	}
	return nil
}

// sweep re-runs Recover periodically so entries abandoned by another instance
// are picked up once they go stale.
func (r *TaskRunner) sweep(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := r.Recover(context.Background()); err != nil {
				r.logger.Error("recovery sweep failed", "error", err)
			}
		}
	}
}

// Stop cancels pending retry timers, closes the queues and waits for in-flight
// tasks until ctx is done. Entries whose jobs were discarded are picked up by
// Recover on the next start.
func (r *TaskRunner) Stop(ctx context.Context) error {
	if r == nil {
		return ErrNotInitialized
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	cancelled := len(r.timers)
	for timer, key := range r.timers {
		timer.Stop()
		delete(r.timers, timer)
		r.releaseLocked(key)
	}
	sweepStop, sweepDone := r.sweepStop, r.sweepDone
	r.mu.Unlock()

	r.logger.Info("stopping task runner", "cancelled_retries", cancelled)

	if sweepStop != nil {
		close(sweepStop)
		<-sweepDone
	}

	var errs []error
	for _, jobType := range domain.JobTypes {
		r.queues[jobType].Close()
	}
	for _, jobType := range domain.JobTypes {
		if err := r.pools[jobType].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s pool: %w", jobType, err))
		}
	}
	return errors.Join(errs...)
}

// Recover re-admits entries left pending or processing by a previous run.
// Entries updated within RecoveryStaleAfter are skipped since another instance
// may still be working on them, as are chains this runner already holds.
// Recovered jobs start a new chain at attempt 1. Image jobs are only recovered
// once the entry's analysis has completed, since the analysis job submits them.
func (r *TaskRunner) Recover(ctx context.Context) error {
	if r == nil {
		return ErrNotInitialized
	}

	cutoff := time.Now().Add(-r.config.RecoveryStaleAfter)
	total := 0
	for _, jobType := range domain.JobTypes {
		for _, status := range []domain.ProcessingStatus{domain.StatusPending, domain.StatusProcessing} {
			entries, err := r.store.FindByStatus(ctx, jobType, status, r.config.RecoveryBatchSize)
			if err != nil {
				return fmt.Errorf("failed to find %s %s entries: %w", status, jobType, err)
			}

			for _, entry := range entries {
				if r.config.RecoveryStaleAfter > 0 && entry.UpdatedAt.After(cutoff) {
					continue
				}
				job, ok := recoveryJob(r, jobType, entry)
				if !ok {
					continue
				}
				if err := r.Submit(ctx, job); err != nil {
					if errors.Is(err, ErrDuplicateJob) {
						continue
					}
					if errors.Is(err, ErrQueueClosed) {
						return nil
					}
					r.logger.Error("failed to requeue entry",
						"job_type", jobType,
						"entry_id", entry.ID,
						"error", err)
					continue
				}
				total++
			}
		}
	}

	if total > 0 {
		r.logger.Info("recovered unfinished entries", "count", total)
	}
	return nil
}

func recoveryJob(r *TaskRunner, jobType domain.JobType, entry *domain.Entry) (Job, bool) {
	if jobType == domain.JobTypeAnalysis {
		return r.NewJob(jobType, entry.ID, entry.OwnerID, ""), true
	}

	if entry.AnalysisStatus != domain.StatusCompleted || entry.Analysis == nil {
		return Job{}, false
	}
	prompt := entry.ImagePrompt
	if prompt == "" {
		prompt = generation.BuildImagePrompt(entry.Analysis)
	}
	return r.NewJob(jobType, entry.ID, entry.OwnerID, prompt), true
}

func (r *TaskRunner) acceptingLocked() error {
	if !r.started {
		return ErrNotInitialized
	}
	if r.stopped {
		return ErrQueueClosed
	}
	return nil
}
