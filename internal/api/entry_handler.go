package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/service"
)

// EntryHandler handles entry-related HTTP requests
type EntryHandler struct {
	entryService service.EntryService
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(entryService service.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// CreateEntry handles POST /api/entries requests.
// Processing happens in the background, so the response is 202 Accepted.
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateEntryRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	entry, err := h.entryService.CreateEntry(r.Context(), userID, req.Text)
	if err != nil {
		if entry != nil {
			// Saved but not yet queued; it will be picked up by recovery.
			logger.FromContext(r.Context()).Warn("entry accepted without queued analysis",
				"entry_id", entry.ID,
				"error", err)
			shared.RespondWithJSON(w, r, http.StatusAccepted, entryToResponse(entry))
			return
		}
		HandleAPIError(w, r, err, "Failed to create entry")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, entryToResponse(entry))
}

// GetEntry handles GET /api/entries/{id} requests.
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.entryService.GetEntry(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get entry")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, entryToResponse(entry))
}

// RetryAnalysis handles POST /api/entries/{id}/analysis/retry requests.
func (h *EntryHandler) RetryAnalysis(w http.ResponseWriter, r *http.Request) {
	h.retry(w, r, h.entryService.RetryAnalysis, "Failed to retry analysis")
}

// RetryImage handles POST /api/entries/{id}/image/retry requests.
func (h *EntryHandler) RetryImage(w http.ResponseWriter, r *http.Request) {
	h.retry(w, r, h.entryService.RetryImage, "Failed to retry image generation")
}

type retryFunc func(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Entry, error)

func (h *EntryHandler) retry(w http.ResponseWriter, r *http.Request, fn retryFunc, defaultMsg string) {
	userID, entryID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	entry, err := fn(r.Context(), userID, entryID)
	if err != nil {
		HandleAPIError(w, r, err, defaultMsg)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, entryToResponse(entry))
}
