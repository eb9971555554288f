package mongodb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// entryDocument is the stored shape of a domain.Entry.
type entryDocument struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`

	AnalysisStatus     string                 `bson:"analysis_status"`
	Analysis           *domain.AnalysisResult `bson:"analysis,omitempty"`
	AnalysisAttempts   []domain.AttemptRecord `bson:"analysis_attempts"`
	RetryCount         int                    `bson:"retry_count"`
	AnalysisIsRetrying bool                   `bson:"analysis_is_retrying"`

	ImageStatus             string                 `bson:"image_status"`
	ImagePrompt             string                 `bson:"image_prompt"`
	ImageURL                string                 `bson:"image_url"`
	ImagePublicID           string                 `bson:"image_public_id"`
	ShareImageURL           string                 `bson:"share_image_url"`
	ImageGenerationAttempts []domain.AttemptRecord `bson:"image_generation_attempts"`
	ImageRetryCount         int                    `bson:"image_retry_count"`
	ImageIsRetrying         bool                   `bson:"image_is_retrying"`
}

// lifecycleFields names the document fields of one job type's lifecycle.
type lifecycleFields struct {
	status     string
	attempts   string
	retrying   string
	retryCount string
}

func fieldsFor(jobType domain.JobType) lifecycleFields {
	if jobType == domain.JobTypeImage {
		return lifecycleFields{
			status:     "image_status",
			attempts:   "image_generation_attempts",
			retrying:   "image_is_retrying",
			retryCount: "image_retry_count",
		}
	}
	return lifecycleFields{
		status:     "analysis_status",
		attempts:   "analysis_attempts",
		retrying:   "analysis_is_retrying",
		retryCount: "retry_count",
	}
}

func toDocument(e *domain.Entry) entryDocument {
	doc := entryDocument{
		ID:                      e.ID.String(),
		OwnerID:                 e.OwnerID.String(),
		Text:                    e.Text,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
		AnalysisStatus:          string(e.AnalysisStatus),
		Analysis:                e.Analysis,
		AnalysisAttempts:        e.AnalysisAttempts,
		RetryCount:              e.RetryCount,
		AnalysisIsRetrying:      e.AnalysisIsRetrying,
		ImageStatus:             string(e.ImageStatus),
		ImagePrompt:             e.ImagePrompt,
		ImageURL:                e.ImageURL,
		ImagePublicID:           e.ImagePublicID,
		ShareImageURL:           e.ShareImageURL,
		ImageGenerationAttempts: e.ImageGenerationAttempts,
		ImageRetryCount:         e.ImageRetryCount,
		ImageIsRetrying:         e.ImageIsRetrying,
	}
	// $push requires an array, never null.
	if doc.AnalysisAttempts == nil {
		doc.AnalysisAttempts = []domain.AttemptRecord{}
	}
	if doc.ImageGenerationAttempts == nil {
		doc.ImageGenerationAttempts = []domain.AttemptRecord{}
	}
	return doc
}

func (d entryDocument) toEntry() (*domain.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", d.ID, err)
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", d.OwnerID, err)
	}

	entry := &domain.Entry{
		ID:                      id,
		OwnerID:                 ownerID,
		Text:                    d.Text,
		CreatedAt:               d.CreatedAt.UTC(),
		UpdatedAt:               d.UpdatedAt.UTC(),
		AnalysisStatus:          domain.ProcessingStatus(d.AnalysisStatus),
		Analysis:                d.Analysis,
		AnalysisAttempts:        d.AnalysisAttempts,
		RetryCount:              d.RetryCount,
		AnalysisIsRetrying:      d.AnalysisIsRetrying,
		ImageStatus:             domain.ProcessingStatus(d.ImageStatus),
		ImagePrompt:             d.ImagePrompt,
		ImageURL:                d.ImageURL,
		ImagePublicID:           d.ImagePublicID,
		ShareImageURL:           d.ShareImageURL,
		ImageGenerationAttempts: d.ImageGenerationAttempts,
		ImageRetryCount:         d.ImageRetryCount,
		ImageIsRetrying:         d.ImageIsRetrying,
	}
	if entry.AnalysisAttempts == nil {
		entry.AnalysisAttempts = []domain.AttemptRecord{}
	}
	if entry.ImageGenerationAttempts == nil {
		entry.ImageGenerationAttempts = []domain.AttemptRecord{}
	}
	return entry, nil
}
