package api

import (
	"time"

	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/redact"
)

// CreateEntryRequest defines the payload for the entry creation endpoint.
type CreateEntryRequest struct {
	Text string `json:"text" validate:"required,min=1,max=10000"`
}

// EntryResponse is the public representation of an entry and its processing state.
type EntryResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Analysis LifecycleResponse      `json:"analysis"`
	Result   *domain.AnalysisResult `json:"result,omitempty"`

	Image         LifecycleResponse `json:"image"`
	ImageURL      string            `json:"image_url,omitempty"`
	ShareImageURL string            `json:"share_image_url,omitempty"`
}

// LifecycleResponse summarizes one processing lifecycle of an entry.
type LifecycleResponse struct {
	Status        string `json:"status"`
	IsRetrying    bool   `json:"is_retrying"`
	Attempts      int    `json:"attempts"`
	ManualRetries int    `json:"manual_retries"`
	LastError     string `json:"last_error,omitempty"`
}

// entryToResponse converts a domain.Entry to an EntryResponse
func entryToResponse(entry *domain.Entry) EntryResponse {
	return EntryResponse{
		ID:            entry.ID.String(),
		OwnerID:       entry.OwnerID.String(),
		Text:          entry.Text,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
		Analysis:      lifecycleToResponse(entry, domain.JobTypeAnalysis),
		Result:        entry.Analysis,
		Image:         lifecycleToResponse(entry, domain.JobTypeImage),
		ImageURL:      entry.ImageURL,
		ShareImageURL: entry.ShareImageURL,
	}
}

func lifecycleToResponse(entry *domain.Entry, jobType domain.JobType) LifecycleResponse {
	attempts := entry.Attempts(jobType)
	return LifecycleResponse{
		Status:        string(entry.Status(jobType)),
		IsRetrying:    entry.IsRetrying(jobType),
		Attempts:      len(attempts),
		ManualRetries: entry.ManualRetries(jobType),
		LastError:     redact.String(domain.LastError(attempts)),
	}
}
