package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Entry
var (
	ErrEmptyEntryID      = errors.New("entry ID cannot be empty")
	ErrEmptyEntryOwnerID = errors.New("entry owner ID cannot be empty")
	ErrEmptyEntryText    = errors.New("entry text cannot be empty")
)

// Entry is a journal record submitted by a user. It carries two independent
// background lifecycles: the analysis of its text and the generation of an
// illustration.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AnalysisStatus     ProcessingStatus `json:"analysis_status"`
	Analysis           *AnalysisResult  `json:"analysis,omitempty"`
	AnalysisAttempts   []AttemptRecord  `json:"analysis_attempts"`
	RetryCount         int              `json:"retry_count"`
	AnalysisIsRetrying bool             `json:"analysis_is_retrying"`

	ImageStatus             ProcessingStatus `json:"image_status"`
	ImagePrompt             string           `json:"image_prompt,omitempty"`
	ImageURL                string           `json:"image_url,omitempty"`
	ImagePublicID           string           `json:"image_public_id,omitempty"`
	ShareImageURL           string           `json:"share_image_url,omitempty"`
	ImageGenerationAttempts []AttemptRecord  `json:"image_generation_attempts"`
	ImageRetryCount         int              `json:"image_retry_count"`
	ImageIsRetrying         bool             `json:"image_is_retrying"`
}

// NewEntry creates a new Entry with the given owner ID and text.
// Both lifecycles start in the pending status.
// Returns an error if validation fails.
func NewEntry(ownerID uuid.UUID, text string) (*Entry, error) {
	now := time.Now().UTC()
	entry := &Entry{
		ID:                      uuid.New(),
		OwnerID:                 ownerID,
		Text:                    text,
		CreatedAt:               now,
		UpdatedAt:               now,
		AnalysisStatus:          StatusPending,
		AnalysisAttempts:        []AttemptRecord{},
		ImageStatus:             StatusPending,
		ImageGenerationAttempts: []AttemptRecord{},
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the Entry has valid data.
func (e *Entry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEntryID
	}

	if e.OwnerID == uuid.Nil {
		return ErrEmptyEntryOwnerID
	}

	if e.Text == "" {
		return ErrEmptyEntryText
	}

	if !e.AnalysisStatus.IsValid() || !e.ImageStatus.IsValid() {
		return ErrInvalidStatus
	}

	return nil
}

// Status returns the processing status of the given lifecycle.
func (e *Entry) Status(jobType JobType) ProcessingStatus {
	if jobType == JobTypeImage {
		return e.ImageStatus
	}
	return e.AnalysisStatus
}

// Attempts returns the attempt history of the given lifecycle.
func (e *Entry) Attempts(jobType JobType) []AttemptRecord {
	if jobType == JobTypeImage {
		return e.ImageGenerationAttempts
	}
	return e.AnalysisAttempts
}

// ManualRetries returns the manual retry counter of the given lifecycle.
func (e *Entry) ManualRetries(jobType JobType) int {
	if jobType == JobTypeImage {
		return e.ImageRetryCount
	}
	return e.RetryCount
}

// IsRetrying reports whether an automatic retry is scheduled for the given lifecycle.
func (e *Entry) IsRetrying(jobType JobType) bool {
	if jobType == JobTypeImage {
		return e.ImageIsRetrying
	}
	return e.AnalysisIsRetrying
}

// ShareCardText returns the title and subtitle used on the share card.
// ok is false when no analysis is available yet.
func (e *Entry) ShareCardText() (title, subtitle string, theme ColorTheme, ok bool) {
	if e.Analysis == nil {
		return "", "", ColorTheme{}, false
	}
	return e.Analysis.ShareMetadata.Title, e.Analysis.Vibe, e.Analysis.ShareMetadata.ColorTheme, true
}

// ImageArtifact describes a generated illustration once it has been hosted.
type ImageArtifact struct {
	URL           string `json:"image_url"`
	PublicID      string `json:"image_public_id"`
	ShareImageURL string `json:"share_image_url,omitempty"`
}
