package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
)

// DefaultHeartbeatInterval is how often an idle event stream sends a comment
// line to keep proxies from closing it.
const DefaultHeartbeatInterval = 15 * time.Second

// EventsHandler streams an owner's real-time events as server-sent events.
// Delivery is best effort: events published while no stream is open are lost.
type EventsHandler struct {
	subscriber notify.Subscriber
	heartbeat  time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler creates a new EventsHandler. A non-positive heartbeat
// selects DefaultHeartbeatInterval.
func NewEventsHandler(subscriber notify.Subscriber, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &EventsHandler{
		subscriber: subscriber,
		heartbeat:  heartbeat,
		closing:    make(chan struct{}),
	}
}

// Close ends every open stream. http.Server.Shutdown does not interrupt
// long-lived handlers, so the server registers Close to run on shutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Stream handles GET /api/events requests.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub, err := h.subscriber.Subscribe(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Event stream unavailable", err)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Debug("failed to close subscription", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	log.Debug("event stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("event stream closed by client")
			return
		case <-h.closing:
			log.Debug("event stream closed by server shutdown")
			return
		case msg, open := <-sub.Messages():
			if !open {
				log.Debug("event stream closed by broker")
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				log.Debug("failed to write event", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
