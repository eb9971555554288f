package task

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/sharecard"
	"github.com/phrazzld/reverie-api/internal/store"
)

// PipelineDeps are the collaborators of analysis and image tasks.
type PipelineDeps struct {
	Store          store.EntryStore
	Notifier       notify.Notifier
	Analyzer       generation.Analyzer
	ImageGenerator generation.ImageGenerator
	ImageHost      generation.ImageHost
	// ImageComposer is optional; without it no share card is composed.
	ImageComposer generation.ImageComposer

	Layout   sharecard.Layout
	Branding sharecard.Branding

	// RetryDelay is the fixed wait between attempts of a chain.
	RetryDelay time.Duration
	// AutoImage makes a successful analysis submit the image job.
	AutoImage bool
	// PublishTimeout bounds each event publish. Zero uses DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// DefaultPublishTimeout bounds how long a worker waits on the notifier.
const DefaultPublishTimeout = 2 * time.Second

// EntryTaskFactory creates AnalysisTask and ImageTask instances
type EntryTaskFactory struct {
	deps   PipelineDeps
	logger *slog.Logger
}

var _ TaskFactory = (*EntryTaskFactory)(nil)

// NewEntryTaskFactory creates a new factory for entry tasks
func NewEntryTaskFactory(deps PipelineDeps, logger *slog.Logger) (*EntryTaskFactory, error) {
	if deps.Store == nil {
		return nil, ErrNilStore
	}
	if deps.Analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if deps.ImageGenerator == nil {
		return nil, ErrNilImageGenerator
	}
	if deps.ImageHost == nil {
		return nil, ErrNilImageHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.PublishTimeout <= 0 {
		deps.PublishTimeout = DefaultPublishTimeout
	}
	if deps.Layout.TitleLineLimit == 0 {
		deps.Layout = sharecard.DefaultLayout()
	}
	return &EntryTaskFactory{
		deps:   deps,
		logger: logger.With("component", "entry_task_factory"),
	}, nil
}

// CreateTask creates the task that executes job
func (f *EntryTaskFactory) CreateTask(job Job, scheduler Scheduler) (Task, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler cannot be nil", ErrInvalidJob)
	}

	base := entryTask{
		id:             uuid.New(),
		job:            job,
		store:          f.deps.Store,
		notifier:       f.deps.Notifier,
		scheduler:      scheduler,
		retryDelay:     f.deps.RetryDelay,
		publishTimeout: f.deps.PublishTimeout,
		logger: f.logger.With(
			"job_type", job.Type,
			"entry_id", job.EntryID,
			"attempt", job.Attempt,
		),
	}

	switch job.Type {
	case domain.JobTypeAnalysis:
		return &AnalysisTask{
			entryTask: base,
			analyzer:  f.deps.Analyzer,
			autoImage: f.deps.AutoImage,
		}, nil
	case domain.JobTypeImage:
		return &ImageTask{
			entryTask: base,
			generator: f.deps.ImageGenerator,
			host:      f.deps.ImageHost,
			composer:  f.deps.ImageComposer,
			layout:    f.deps.Layout,
			branding:  f.deps.Branding,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported job type %q", ErrInvalidJob, job.Type)
	}
}
