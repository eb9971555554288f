package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEntryService is a mock implementation of service.EntryService for testing
type MockEntryService struct {
	CreateEntryFn   func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error)
	GetEntryFn      func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)
	RetryAnalysisFn func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)
	RetryImageFn    func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)
}

var _ service.EntryService = (*MockEntryService)(nil)

// CreateEntry implements service.EntryService
func (m *MockEntryService) CreateEntry(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
	if m.CreateEntryFn != nil {
		return m.CreateEntryFn(ctx, ownerID, text)
	}
	return nil, nil
}

// GetEntry implements service.EntryService
func (m *MockEntryService) GetEntry(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	if m.GetEntryFn != nil {
		return m.GetEntryFn(ctx, ownerID, entryID)
	}
	return nil, nil
}

// RetryAnalysis implements service.EntryService
func (m *MockEntryService) RetryAnalysis(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	if m.RetryAnalysisFn != nil {
		return m.RetryAnalysisFn(ctx, ownerID, entryID)
	}
	return nil, nil
}

// RetryImage implements service.EntryService
func (m *MockEntryService) RetryImage(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
	if m.RetryImageFn != nil {
		return m.RetryImageFn(ctx, ownerID, entryID)
	}
	return nil, nil
}

var (
	fixedOwnerID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fixedEntryID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedTime    = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
)

func testEntry() *domain.Entry {
	msg := "model unavailable"
	return &domain.Entry{
		ID:             fixedEntryID,
		OwnerID:        fixedOwnerID,
		Text:           "Walked along the canal at dusk.",
		CreatedAt:      fixedTime,
		UpdatedAt:      fixedTime,
		AnalysisStatus: domain.StatusFailed,
		AnalysisAttempts: []domain.AttemptRecord{
			{Attempt: 1, Status: domain.AttemptFailed, Error: &msg, Timestamp: fixedTime},
		},
		RetryCount:              1,
		ImageStatus:             domain.StatusPending,
		ImageGenerationAttempts: []domain.AttemptRecord{},
	}
}

// newTestRouter mounts the handler the way the server does and authenticates
// every request as ownerID when it is not uuid.Nil.
func newTestRouter(svc service.EntryService, ownerID uuid.UUID) http.Handler {
	h := NewEntryHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.SetTraceID(req.Context())
			if ownerID != uuid.Nil {
				ctx = shared.WithUserID(ctx, ownerID)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/entries", h.CreateEntry)
	r.Get("/api/entries/{id}", h.GetEntry)
	r.Post("/api/entries/{id}/analysis/retry", h.RetryAnalysis)
	r.Post("/api/entries/{id}/image/retry", h.RetryImage)
	return r
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestEntryHandler_CreateEntry(t *testing.T) {
	tests := []struct {
		name           string
		ownerID        uuid.UUID
		body           string
		createFn       func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error)
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name:    "accepted",
			ownerID: fixedOwnerID,
			body:    `{"text":"Walked along the canal at dusk."}`,
			createFn: func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
				e := testEntry()
				e.AnalysisStatus = domain.StatusPending
				return e, nil
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "unauthenticated",
			ownerID:        uuid.Nil,
			body:           `{"text":"x"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedErrMsg: "User ID not found or invalid",
		},
		{
			name:           "malformed json",
			ownerID:        fixedOwnerID,
			body:           `{"text":`,
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid request format",
		},
		{
			name:           "unknown field",
			ownerID:        fixedOwnerID,
			body:           `{"text":"hi","mood":"good"}`,
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid request format",
		},
		{
			name:           "missing text",
			ownerID:        fixedOwnerID,
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid text: required field",
		},
		{
			name:    "blank text rejected by service",
			ownerID: fixedOwnerID,
			body:    `{"text":"   "}`,
			createFn: func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
				return nil, errors.Join(service.ErrInvalidEntry, domain.ErrEmptyEntryText)
			},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Entry text cannot be empty",
		},
		{
			name:    "saved but not queued",
			ownerID: fixedOwnerID,
			body:    `{"text":"Late night."}`,
			createFn: func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
				return testEntry(), &service.EntryServiceError{Operation: "create_entry", Message: "failed to submit analysis job"}
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:    "store failure",
			ownerID: fixedOwnerID,
			body:    `{"text":"Late night."}`,
			createFn: func(ctx context.Context, ownerID uuid.UUID, text string) (*domain.Entry, error) {
				return nil, &service.EntryServiceError{Operation: "create_entry", Err: errors.New("connection refused")}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "Failed to create entry",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockEntryService{CreateEntryFn: tc.createFn}
			req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()

			newTestRouter(svc, tc.ownerID).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedErrMsg != "" {
				resp := decodeBody[shared.ErrorResponse](t, rr)
				assert.Equal(t, tc.expectedErrMsg, resp.Error)
				assert.NotEmpty(t, resp.TraceID)
				assert.NotContains(t, rr.Body.String(), "connection refused")
				return
			}
			resp := decodeBody[EntryResponse](t, rr)
			assert.Equal(t, fixedEntryID.String(), resp.ID)
			assert.Equal(t, fixedOwnerID.String(), resp.OwnerID)
		})
	}
}

func TestEntryHandler_GetEntry(t *testing.T) {
	svc := &MockEntryService{
		GetEntryFn: func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
			if ownerID != fixedOwnerID || entryID != fixedEntryID {
				return nil, service.ErrEntryNotFound
			}
			return testEntry(), nil
		},
	}

	t.Run("found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/entries/"+fixedEntryID.String(), nil)
		newTestRouter(svc, fixedOwnerID).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[EntryResponse](t, rr)
		assert.Equal(t, "failed", resp.Analysis.Status)
		assert.Equal(t, 1, resp.Analysis.Attempts)
		assert.Equal(t, 1, resp.Analysis.ManualRetries)
		assert.Equal(t, "model unavailable", resp.Analysis.LastError)
		assert.Equal(t, "pending", resp.Image.Status)
		assert.Nil(t, resp.Result)
	})

	t.Run("other owner", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/entries/"+fixedEntryID.String(), nil)
		newTestRouter(svc, uuid.New()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Entry not found", decodeBody[shared.ErrorResponse](t, rr).Error)
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/entries/not-a-uuid", nil)
		newTestRouter(svc, fixedOwnerID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid ID", decodeBody[shared.ErrorResponse](t, rr).Error)
	})
}

func TestEntryHandler_Retry(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		err            error
		expectedStatus int
		expectedErrMsg string
	}{
		{"analysis accepted", "/analysis/retry", nil, http.StatusAccepted, ""},
		{"image accepted", "/image/retry", nil, http.StatusAccepted, ""},
		{
			"limit reached", "/analysis/retry",
			&service.ManualRetryDeniedError{JobType: domain.JobTypeAnalysis, EntryID: fixedEntryID, Limit: 3},
			http.StatusTooManyRequests, "Manual retry limit reached",
		},
		{"not failed", "/image/retry", service.ErrRetryNotAllowed, http.StatusConflict, "Entry cannot be retried in its current state"},
		{"missing", "/image/retry", service.ErrEntryNotFound, http.StatusNotFound, "Entry not found"},
		{"unexpected", "/image/retry", errors.New("boom"), http.StatusInternalServerError, "Failed to retry image generation"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var called string
			fn := func(kind string) func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
				return func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
					called = kind
					if tc.err != nil {
						return nil, tc.err
					}
					e := testEntry()
					e.AnalysisStatus = domain.StatusPending
					return e, nil
				}
			}
			svc := &MockEntryService{RetryAnalysisFn: fn("analysis"), RetryImageFn: fn("image")}

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/entries/"+fixedEntryID.String()+tc.path, nil)
			newTestRouter(svc, fixedOwnerID).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.True(t, strings.HasPrefix(tc.path, "/"+called+"/"))
			if tc.expectedErrMsg != "" {
				assert.Equal(t, tc.expectedErrMsg, decodeBody[shared.ErrorResponse](t, rr).Error)
			}
		})
	}
}

func TestEntryHandler_GetEntry_RedactsAttemptErrors(t *testing.T) {
	svc := &MockEntryService{
		GetEntryFn: func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error) {
			e := testEntry()
			msg := "mark processing: dial postgres://reverie:hunter2@db:5432/reverie: timeout"
			e.AnalysisAttempts[0].Error = &msg
			return e, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/entries/"+fixedEntryID.String(), nil)
	newTestRouter(svc, fixedOwnerID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[EntryResponse](t, rr)
	assert.NotContains(t, resp.Analysis.LastError, "hunter2")
	assert.Contains(t, resp.Analysis.LastError, "[REDACTED_CREDENTIAL]")
}
