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
	"github.com/phrazzld/reverie-api/internal/platform/memory"
	"github.com/phrazzld/reverie-api/internal/sharecard"
	"github.com/stretchr/testify/require"
)

const validAnalysisJSON = `{
	"interpretation": "You are letting go of something you outgrew.",
	"deep_analysis": {
		"emotional_state": "wistful",
		"core_themes": "change, memory",
		"subconscious_signals": "water imagery",
		"growth_insight": "grief can be gentle"
	},
	"personality_type": "dreamer",
	"vibe": "Soft tide, long exhale",
	"sentiment": {"positive": 40, "neutral": 35, "negative": 25},
	"share_metadata": {
		"title": "A Quiet Ocean of Forgotten Dreams",
		"color_theme": {"background": "#0B1D3A", "accent": "#7FD1E8", "text": "#F5F7FA"},
		"captions": {"instagram": "tide", "twitter": "tide", "tiktok": "tide"}
	}
}`

const missingNegativeJSON = `{
	"interpretation": "x",
	"deep_analysis": {"emotional_state": "x", "core_themes": "x", "subconscious_signals": "x", "growth_insight": "x"},
	"personality_type": "sage",
	"vibe": "x",
	"sentiment": {"positive": 50, "neutral": 50},
	"share_metadata": {
		"title": "x",
		"color_theme": {"background": "#000000", "accent": "#111111", "text": "#FFFFFF"},
		"captions": {"instagram": "x", "twitter": "x", "tiktok": "x"}
	}
}`

type analyzerFunc func(ctx context.Context, text string) ([]byte, error)

func (f analyzerFunc) Analyze(ctx context.Context, text string) ([]byte, error) { return f(ctx, text) }

type imageGeneratorFunc func(ctx context.Context, prompt string) (*generation.Image, error)

func (f imageGeneratorFunc) GenerateImage(ctx context.Context, prompt string) (*generation.Image, error) {
	return f(ctx, prompt)
}

type imageHostFunc func(ctx context.Context, name string, image *generation.Image) (*generation.HostedImage, error)

func (f imageHostFunc) Upload(ctx context.Context, name string, image *generation.Image) (*generation.HostedImage, error) {
	return f(ctx, name, image)
}

type composerFunc func(ctx context.Context, recipe sharecard.Recipe) (string, error)

func (f composerFunc) Compose(ctx context.Context, recipe sharecard.Recipe) (string, error) {
	return f(ctx, recipe)
}

func staticAnalyzer(payload string) analyzerFunc {
	return func(ctx context.Context, text string) ([]byte, error) { return []byte(payload), nil }
}

func pngGenerator() imageGeneratorFunc {
	return func(ctx context.Context, prompt string) (*generation.Image, error) {
		return &generation.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}, nil
	}
}

func stubHost() imageHostFunc {
	return func(ctx context.Context, name string, image *generation.Image) (*generation.HostedImage, error) {
		return &generation.HostedImage{URL: "https://img.example/" + name + ".png", PublicID: "reverie/" + name}, nil
	}
}

func timeoutGenerator(calls *callCounter) imageGeneratorFunc {
	return func(ctx context.Context, prompt string) (*generation.Image, error) {
		calls.inc()
		return nil, generation.NewServiceError("imagen", "generate_image",
			errors.Join(generation.ErrTransientFailure, context.DeadlineExceeded))
	}
}

type callCounter struct {
	mu sync.Mutex
	n  int
}

func (c *callCounter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *callCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// recordingNotifier keeps every published event and optionally fails.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Publish(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// recordingScheduler captures chained and retried jobs instead of running them.
type recordingScheduler struct {
	mu      sync.Mutex
	images  []Job
	retries []Job
	delays  []time.Duration
}

func (s *recordingScheduler) SubmitImageJob(ctx context.Context, entryID uuid.UUID, prompt string, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, NewJob(domain.JobTypeImage, entryID, ownerID, prompt, 3))
	return nil
}

func (s *recordingScheduler) SubmitAfter(job Job, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = append(s.retries, job)
	s.delays = append(s.delays, delay)
	return nil
}

func newTestStore(t *testing.T) *memory.EntryStore {
	t.Helper()
	return memory.NewEntryStore(logger.Discard())
}

func createEntry(t *testing.T, s *memory.EntryStore) *domain.Entry {
	t.Helper()
	entry, err := domain.NewEntry(uuid.New(), "I walked along the shore and thought about leaving.")
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), entry))
	return entry
}

func testDeps(s *memory.EntryStore, n notify.Notifier) PipelineDeps {
	return PipelineDeps{
		Store:          s,
		Notifier:       n,
		Analyzer:       staticAnalyzer(validAnalysisJSON),
		ImageGenerator: pngGenerator(),
		ImageHost:      stubHost(),
		RetryDelay:     10 * time.Millisecond,
	}
}

func newTestFactory(t *testing.T, deps PipelineDeps) *EntryTaskFactory {
	t.Helper()
	f, err := NewEntryTaskFactory(deps, logger.Discard())
	require.NoError(t, err)
	return f
}

// startRunner builds and starts a runner and stops it when the test ends.
func startRunner(t *testing.T, deps PipelineDeps, config TaskRunnerConfig) *TaskRunner {
	t.Helper()
	runner, err := NewTaskRunner(deps.Store, newTestFactory(t, deps), config, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})
	return runner
}

func getEntry(t *testing.T, s *memory.EntryStore, id uuid.UUID) *domain.Entry {
	t.Helper()
	entry, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	return entry
}

// stubTask is a minimal Task for queue and pool tests.
type stubTask struct {
	id     uuid.UUID
	job    Job
	execFn func(ctx context.Context) error
}

func newStubTask(execFn func(ctx context.Context) error) *stubTask {
	return &stubTask{
		id:     uuid.New(),
		job:    NewJob(domain.JobTypeAnalysis, uuid.New(), uuid.New(), "", 1),
		execFn: execFn,
	}
}

func (s *stubTask) ID() uuid.UUID        { return s.id }
func (s *stubTask) Type() domain.JobType { return s.job.Type }
func (s *stubTask) Job() Job             { return s.job }
func (s *stubTask) Execute(ctx context.Context) error {
	if s.execFn == nil {
		return nil
	}
	return s.execFn(ctx)
}
