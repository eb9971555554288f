package api

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsHandler_StreamsOwnerEvents(t *testing.T) {
	broker := notify.NewInMemoryBroker(logger.Discard())
	t.Cleanup(func() { _ = broker.Close() })

	h := NewEventsHandler(broker, time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, r.WithContext(shared.WithUserID(r.Context(), fixedOwnerID)))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	// Another owner's event must not reach this stream.
	other := notify.NewEntityUpdate(domain.JobTypeAnalysis, uuid.New(), uuid.New(),
		map[string]any{"analysis_status": domain.StatusProcessing})
	require.NoError(t, broker.Publish(context.Background(), other))

	event := notify.NewEntityUpdate(domain.JobTypeImage, fixedOwnerID, fixedEntryID,
		map[string]any{"image_status": domain.StatusCompleted})
	require.NoError(t, broker.Publish(context.Background(), event))

	var data string
	for data == "" {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}
	assert.JSONEq(t,
		`{"type":"processed-entity-updated","data":{"id":"`+fixedEntryID.String()+`","image_status":"completed"}}`,
		data)
}

func TestEventsHandler_Unauthenticated(t *testing.T) {
	broker := notify.NewInMemoryBroker(logger.Discard())
	t.Cleanup(func() { _ = broker.Close() })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	NewEventsHandler(broker, 0).Stream(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEventsHandler_BrokerClosed(t *testing.T) {
	broker := notify.NewInMemoryBroker(logger.Discard())
	require.NoError(t, broker.Close())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(shared.WithUserID(req.Context(), fixedOwnerID))
	NewEventsHandler(broker, 0).Stream(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEventsHandler_CloseEndsOpenStreams(t *testing.T) {
	broker := notify.NewInMemoryBroker(logger.Discard())
	t.Cleanup(func() { _ = broker.Close() })

	h := NewEventsHandler(broker, time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, r.WithContext(shared.WithUserID(r.Context(), fixedOwnerID)))
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	h.Close()
	h.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(reader)
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream stayed open after Close")
	}
}
