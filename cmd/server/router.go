package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/reverie-api/internal/api"
	apiMiddleware "github.com/phrazzld/reverie-api/internal/api/middleware"
)

// requestTimeout bounds every API request except the event stream.
const requestTimeout = 30 * time.Second

// setupRouter creates the application router with all routes and middleware.
// It also creates app.eventsHandler, which the server closes on shutdown.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	entryHandler := api.NewEntryHandler(app.entryService)
	app.eventsHandler = api.NewEventsHandler(app.broker, api.DefaultHeartbeatInterval)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/entries", entryHandler.CreateEntry)
			r.Get("/entries/{id}", entryHandler.GetEntry)
			r.Post("/entries/{id}/analysis/retry", entryHandler.RetryAnalysis)
			r.Post("/entries/{id}/image/retry", entryHandler.RetryImage)
		})

		// EventSource clients cannot set headers, so the stream also accepts
		// the token as a query parameter. It has no request timeout.
		r.With(authMiddleware.WithQueryToken().Authenticate).Get("/events", app.eventsHandler.Stream)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
