package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run listens on the configured port and serves until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.serve(ctx, ln)
}

// serve starts the task runner and the HTTP server on ln and blocks until ctx
// is cancelled or either fails. The server and the runner are then stopped in
// that order, each within its own shutdown timeout.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown waits for handlers to return, and event streams only return
	// when told to.
	server.RegisterOnShutdown(app.eventsHandler.Close)

	if err := app.taskRunner.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		var errs []error

		serverCtx, cancelServer := context.WithTimeout(context.Background(), app.shutdownTimeout())
		defer cancelServer()
		if err := server.Shutdown(serverCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}

		runnerCtx, cancelRunner := context.WithTimeout(context.Background(), app.shutdownTimeout())
		defer cancelRunner()
		if err := app.taskRunner.Stop(runnerCtx); err != nil {
			errs = append(errs, fmt.Errorf("task runner shutdown failed: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (app *application) shutdownTimeout() time.Duration {
	if app.config.Server.ShutdownTimeout > 0 {
		return app.config.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
