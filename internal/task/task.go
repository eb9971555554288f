package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// Task represents a unit of background work to be processed
// Version: 1.0
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the job type the task executes
	Type() domain.JobType

	// Job returns the job descriptor the task was created from
	Job() Job

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
// Version: 1.0
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
// Version: 1.0
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns ErrQueueClosed once the queue has been closed.
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// Scheduler is the part of the runner that tasks use to chain and retry jobs.
type Scheduler interface {
	// SubmitImageJob submits the first attempt of an image job.
	SubmitImageJob(ctx context.Context, entryID uuid.UUID, prompt string, ownerID uuid.UUID) error

	// SubmitAfter submits job once delay has elapsed.
	SubmitAfter(job Job, delay time.Duration) error
}

// TaskFactory builds the task that executes a job.
type TaskFactory interface {
	CreateTask(job Job, scheduler Scheduler) (Task, error)
}
