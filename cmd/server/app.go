package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reverie-api/internal/api"
	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/cloudinary"
	"github.com/phrazzld/reverie-api/internal/platform/gemini"
	"github.com/phrazzld/reverie-api/internal/service"
	"github.com/phrazzld/reverie-api/internal/service/auth"
	"github.com/phrazzld/reverie-api/internal/sharecard"
	"github.com/phrazzld/reverie-api/internal/store"
	"github.com/phrazzld/reverie-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	entryStore store.EntryStore
	broker     notify.Broker

	jwtService   auth.JWTService
	entryService service.EntryService

	taskRunner    *task.TaskRunner
	eventsHandler *api.EventsHandler

	closers []func()
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *application, err error) {
	app = &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	entryStore, closeStore, err := setupEntryStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up entry store: %w", err)
	}
	app.entryStore = entryStore
	app.closers = append(app.closers, closeStore)

	app.broker, err = setupBroker(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up notifier: %w", err)
	}

	deps, err := setupPipelineDeps(ctx, cfg, app.entryStore, app.broker, logger)
	if err != nil {
		return nil, err
	}

	factory, err := task.NewEntryTaskFactory(deps, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factory: %w", err)
	}

	runnerConfig := task.DefaultTaskRunnerConfig()
	runnerConfig.AnalysisWorkers = cfg.Pipeline.AnalysisConcurrency
	runnerConfig.ImageWorkers = cfg.Pipeline.ImageConcurrency
	runnerConfig.AnalysisMaxAttempts = cfg.Pipeline.AnalysisMaxAttempts
	runnerConfig.ImageMaxAttempts = cfg.Pipeline.ImageMaxAttempts
	runnerConfig.RecoveryStaleAfter = cfg.Pipeline.RecoveryStaleAfter
	runnerConfig.RecoveryInterval = cfg.Pipeline.RecoveryInterval

	app.taskRunner, err = task.NewTaskRunner(app.entryStore, factory, runnerConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		logger.Warn("job chain ended in failure",
			"job_type", t.Type(),
			"entry_id", t.Job().EntryID,
			"error", err)
	})

	app.entryService, err = service.NewEntryService(
		app.entryStore,
		app.taskRunner,
		app.broker,
		service.EntryServiceConfig{ManualRetryLimit: cfg.Pipeline.ManualRetryLimit},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupBroker selects Redis Pub/Sub when a Redis URL is configured and the
// in-process broker otherwise.
func setupBroker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (notify.Broker, error) {
	if cfg.URL == "" {
		logger.Info("using in-process notifier")
		return notify.NewInMemoryBroker(logger), nil
	}

	broker, err := notify.NewRedisBroker(cfg.URL, logger)
	if err != nil {
		return nil, err
	}
	if err := broker.Ping(ctx); err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	logger.Info("using redis notifier")
	return broker, nil
}

// setupPipelineDeps builds the external service adapters used by the tasks.
func setupPipelineDeps(
	ctx context.Context,
	cfg *config.Config,
	entryStore store.EntryStore,
	notifier notify.Notifier,
	logger *slog.Logger,
) (task.PipelineDeps, error) {
	analyzer, images, err := gemini.NewAdapters(ctx, logger, cfg.LLM)
	if err != nil {
		return task.PipelineDeps{}, fmt.Errorf("failed to initialize LLM adapters: %w", err)
	}

	cld, err := cloudinary.NewClient(cfg.ImageHost)
	if err != nil {
		return task.PipelineDeps{}, fmt.Errorf("failed to initialize image host: %w", err)
	}

	return task.PipelineDeps{
		Store:          entryStore,
		Notifier:       notifier,
		Analyzer:       analyzer,
		ImageGenerator: images,
		ImageHost:      cloudinary.NewUploader(&cld.Upload, cfg.ImageHost.Folder, cfg.LLM.RequestTimeout, logger),
		ImageComposer:  cloudinary.NewComposer(cld),
		Layout:         sharecard.DefaultLayout(),
		Branding: sharecard.Branding{
			PanelID:     cfg.ImageHost.PanelID,
			BrandMarkID: cfg.ImageHost.BrandMarkID,
			BrandText:   cfg.Pipeline.BrandText,
		},
		RetryDelay: cfg.Pipeline.RetryDelay,
		AutoImage:  cfg.Pipeline.AutoImage,
	}, nil
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("error closing notifier", "error", err)
		}
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.logger.Info("application shutdown completed")
}
