package task

import (
	"log/slog"
	"sync"
)

// TaskQueue is an unbounded FIFO queue. Enqueue never blocks; a single pump
// goroutine hands tasks to consumers in admission order.
type TaskQueue struct {
	mu      sync.Mutex
	pending []Task
	closed  bool

	signal chan struct{}
	done   chan struct{}
	out    chan Task
	logger *slog.Logger
}

// NewTaskQueue creates a task queue and starts its pump.
func NewTaskQueue(logger *slog.Logger) *TaskQueue {
	q := &TaskQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Task),
		logger: logger,
	}
	go q.pump()
	return q
}

// Enqueue adds a task to the queue for processing.
// Returns ErrQueueClosed once the queue has been closed.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, task)
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"job_type", task.Type(),
		"entry_id", task.Job().EntryID,
		"queue_len", depth)
	return nil
}

// Len returns the number of tasks waiting to be handed to a consumer.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close closes the task queue, preventing further task submission.
// Tasks not yet handed to a consumer are discarded and the channel returned by
// GetChannel is closed.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)

	q.logger.Info("task queue closed", "discarded", len(q.pending))
	q.pending = nil
}

// GetChannel returns a read-only channel for consuming tasks
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.out
}

func (q *TaskQueue) pump() {
	defer close(q.out)
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		select {
		case q.out <- task:
		case <-q.done:
			return
		}
	}
}

// next blocks until a task is available or the queue is closed.
func (q *TaskQueue) next() (Task, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.pending) > 0 {
			task := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return task, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.done:
			return nil, false
		}
	}
}
