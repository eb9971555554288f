package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntryTaskFactory_RequiresDependencies(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name   string
		mutate func(d *PipelineDeps)
		want   error
	}{
		{"store", func(d *PipelineDeps) { d.Store = nil }, ErrNilStore},
		{"analyzer", func(d *PipelineDeps) { d.Analyzer = nil }, ErrNilAnalyzer},
		{"image generator", func(d *PipelineDeps) { d.ImageGenerator = nil }, ErrNilImageGenerator},
		{"image host", func(d *PipelineDeps) { d.ImageHost = nil }, ErrNilImageHost},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDeps(s, nil)
			tc.mutate(&deps)
			_, err := NewEntryTaskFactory(deps, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	f := newTestFactory(t, testDeps(s, nil))
	_, err := f.CreateTask(NewJob("video", uuid.New(), uuid.New(), "", 1), &recordingScheduler{})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = f.CreateTask(NewJob(domain.JobTypeAnalysis, uuid.New(), uuid.New(), "", 1), nil)
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestAnalysisTask_Success(t *testing.T) {
	s := newTestStore(t)
	notifier := &recordingNotifier{}
	scheduler := &recordingScheduler{}
	entry := createEntry(t, s)

	deps := testDeps(s, notifier)
	deps.AutoImage = true
	var seenText string
	deps.Analyzer = analyzerFunc(func(ctx context.Context, text string) ([]byte, error) {
		seenText = text
		return []byte(validAnalysisJSON), nil
	})

	task, err := newTestFactory(t, deps).CreateTask(NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), scheduler)
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, entry.Text, seenText)

	got := getEntry(t, s, entry.ID)
	assert.Equal(t, domain.StatusCompleted, got.AnalysisStatus)
	assert.False(t, got.AnalysisIsRetrying)
	require.Len(t, got.AnalysisAttempts, 1)
	assert.Equal(t, domain.AttemptSuccess, got.AnalysisAttempts[0].Status)
	assert.Nil(t, got.AnalysisAttempts[0].Error)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, domain.PersonalityDreamer, got.Analysis.PersonalityType)
	assert.Equal(t, domain.StatusPending, got.ImageStatus)

	require.Len(t, scheduler.images, 1)
	assert.Equal(t, entry.ID, scheduler.images[0].EntryID)
	assert.Equal(t, generation.BuildImagePrompt(got.Analysis), scheduler.images[0].Payload)
	assert.Equal(t, scheduler.images[0].Payload, got.ImagePrompt)

	events := notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notify.EntityUpdated, events[0].Type)
	assert.Equal(t, domain.StatusProcessing, events[0].Fields["analysis_status"])
	assert.Equal(t, domain.StatusCompleted, events[1].Fields["analysis_status"])
	assert.Equal(t, entry.OwnerID, events[1].OwnerID)
	assert.Equal(t, entry.ID, events[1].EntityID)
	assert.NotContains(t, events[1].Fields, "text", "only changed fields are sent")
}

func TestAnalysisTask_NoAutoImage(t *testing.T) {
	s := newTestStore(t)
	scheduler := &recordingScheduler{}
	entry := createEntry(t, s)

	task, err := newTestFactory(t, testDeps(s, nil)).CreateTask(NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), scheduler)
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))

	assert.Empty(t, scheduler.images)
	assert.Equal(t, domain.StatusCompleted, getEntry(t, s, entry.ID).AnalysisStatus)
}

// An analysis payload missing sentiment.negative fails the entry after one attempt.
func TestAnalysisTask_MissingFieldFailsEntry(t *testing.T) {
	s := newTestStore(t)

	deps := testDeps(s, &recordingNotifier{})
	deps.Analyzer = staticAnalyzer(missingNegativeJSON)

	var mu sync.Mutex
	var taskErr error
	runner, err := NewTaskRunner(s, newTestFactory(t, deps), DefaultTaskRunnerConfig(), logger.Discard())
	require.NoError(t, err)
	runner.SetErrorHandler(func(task Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		taskErr = err
	})
	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(func() { _ = runner.Stop(context.Background()) })

	entry := createEntry(t, s)
	require.NoError(t, runner.SubmitAnalysisJob(context.Background(), entry.ID, entry.OwnerID))

	require.Eventually(t, func() bool {
		return getEntry(t, s, entry.ID).AnalysisStatus == domain.StatusFailed
	}, time.Second, 5*time.Millisecond)

	got := getEntry(t, s, entry.ID)
	require.Len(t, got.AnalysisAttempts, 1)
	assert.Equal(t, domain.AttemptFailed, got.AnalysisAttempts[0].Status)
	require.NotNil(t, got.AnalysisAttempts[0].Error)
	assert.Contains(t, *got.AnalysisAttempts[0].Error, "sentiment.negative")
	assert.False(t, got.AnalysisIsRetrying)
	assert.Nil(t, got.Analysis)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return taskErr != nil
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, taskErr, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.ErrorIs(t, taskErr, validation.ErrInvalidPayload)
}

func TestAnalysisTask_NonTerminalFailureSchedulesRetry(t *testing.T) {
	s := newTestStore(t)
	notifier := &recordingNotifier{}
	scheduler := &recordingScheduler{}
	entry := createEntry(t, s)

	deps := testDeps(s, notifier)
	deps.RetryDelay = 10 * time.Second
	deps.Analyzer = analyzerFunc(func(ctx context.Context, text string) ([]byte, error) {
		return nil, generation.NewServiceError("gemini", "analyze", generation.ErrTransientFailure)
	})

	job := NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 3)
	task, err := newTestFactory(t, deps).CreateTask(job, scheduler)
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()), "retryable failures stay inside the task")

	got := getEntry(t, s, entry.ID)
	assert.Equal(t, domain.StatusProcessing, got.AnalysisStatus)
	assert.True(t, got.AnalysisIsRetrying)
	require.Len(t, got.AnalysisAttempts, 1)
	assert.Contains(t, *got.AnalysisAttempts[0].Error, "gemini analyze")

	require.Len(t, scheduler.retries, 1)
	assert.Equal(t, 2, scheduler.retries[0].Attempt)
	assert.Equal(t, job.EntryID, scheduler.retries[0].EntryID)
	assert.NotEqual(t, job.ID, scheduler.retries[0].ID)
	assert.Equal(t, 10*time.Second, scheduler.delays[0])

	events := notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, true, events[1].Fields["analysis_is_retrying"])
}

func TestAnalysisTask_NotifierFailureDoesNotFailTask(t *testing.T) {
	s := newTestStore(t)
	entry := createEntry(t, s)
	notifier := &recordingNotifier{err: errors.Join(notify.ErrPublishFailed, errors.New("redis down"))}

	task, err := newTestFactory(t, testDeps(s, notifier)).CreateTask(
		NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), &recordingScheduler{})
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, domain.StatusCompleted, getEntry(t, s, entry.ID).AnalysisStatus)
	assert.Len(t, notifier.Events(), 2)
}

func TestAnalysisTask_MissingEntry(t *testing.T) {
	s := newTestStore(t)
	entry, err := domain.NewEntry(uuid.New(), "never stored")
	require.NoError(t, err)

	task, err := newTestFactory(t, testDeps(s, nil)).CreateTask(
		NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), &recordingScheduler{})
	require.NoError(t, err)
	assert.Error(t, task.Execute(context.Background()))
}

func TestAnalysisTask_PanicFailsAttempt(t *testing.T) {
	s := newTestStore(t)
	notifier := &recordingNotifier{}
	entry := createEntry(t, s)

	deps := testDeps(s, notifier)
	deps.Analyzer = analyzerFunc(func(ctx context.Context, text string) ([]byte, error) {
		panic("nil response body")
	})

	task, err := newTestFactory(t, deps).CreateTask(
		NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), &recordingScheduler{})
	require.NoError(t, err)

	err = task.Execute(context.Background())
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, ErrTaskPanicked)

	got := getEntry(t, s, entry.ID)
	assert.Equal(t, domain.StatusFailed, got.AnalysisStatus)
	require.Len(t, got.AnalysisAttempts, 1)
	require.NotNil(t, got.AnalysisAttempts[0].Error)
	assert.Contains(t, *got.AnalysisAttempts[0].Error, "nil response body")

	events := notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, domain.StatusFailed, events[len(events)-1].Fields["analysis_status"])
}

func TestAnalysisTask_PanicSchedulesRetry(t *testing.T) {
	s := newTestStore(t)
	scheduler := &recordingScheduler{}
	entry := createEntry(t, s)

	deps := testDeps(s, nil)
	deps.Analyzer = analyzerFunc(func(ctx context.Context, text string) ([]byte, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	})

	task, err := newTestFactory(t, deps).CreateTask(
		NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 3), scheduler)
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))

	got := getEntry(t, s, entry.ID)
	assert.Equal(t, domain.StatusProcessing, got.AnalysisStatus)
	assert.True(t, got.AnalysisIsRetrying)
	require.Len(t, got.AnalysisAttempts, 1)
	require.Len(t, scheduler.retries, 1)
	assert.Equal(t, 2, scheduler.retries[0].Attempt)
}

// blockingNotifier waits for its context to end, like a broker that never answers.
type blockingNotifier struct {
	mu        sync.Mutex
	deadlines int
}

func (n *blockingNotifier) Publish(ctx context.Context, event notify.Event) error {
	if _, ok := ctx.Deadline(); ok {
		n.mu.Lock()
		n.deadlines++
		n.mu.Unlock()
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestAnalysisTask_SlowNotifierDoesNotHoldWorker(t *testing.T) {
	s := newTestStore(t)
	entry := createEntry(t, s)
	notifier := &blockingNotifier{}

	deps := testDeps(s, notifier)
	deps.PublishTimeout = 20 * time.Millisecond

	task, err := newTestFactory(t, deps).CreateTask(
		NewJob(domain.JobTypeAnalysis, entry.ID, entry.OwnerID, "", 1), &recordingScheduler{})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, task.Execute(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, domain.StatusCompleted, getEntry(t, s, entry.ID).AnalysisStatus)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 2, notifier.deadlines, "every publish is bounded")
}
