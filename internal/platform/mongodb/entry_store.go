package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEntryStore implements store.EntryStore on a MongoDB collection.
type MongoEntryStore struct {
	col    *mongo.Collection
	logger *slog.Logger
}

var _ store.EntryStore = (*MongoEntryStore)(nil)

// NewMongoEntryStore creates a store backed by col.
func NewMongoEntryStore(col *mongo.Collection, logger *slog.Logger) *MongoEntryStore {
	if col == nil {
		panic("collection cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoEntryStore{
		col:    col,
		logger: logger.With(slog.String("component", "entry_store")),
	}
}

// EnsureIndexes creates the indexes used by owner lookups and recovery scans.
func (s *MongoEntryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "analysis_status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "image_status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create entry indexes: %w", err)
	}
	return nil
}

// Create implements store.EntryStore.
func (s *MongoEntryStore) Create(ctx context.Context, entry *domain.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if _, err := s.col.InsertOne(ctx, toDocument(entry)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: entry %s", store.ErrDuplicate, entry.ID)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return store.NewStoreError("entry", "create", "insert failed", err)
	}
	return nil
}

// GetByID implements store.EntryStore.
func (s *MongoEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	var doc entryDocument
	err := s.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrEntryNotFound
		}
		return nil, store.NewStoreError("entry", "get", "find failed", err)
	}
	return doc.toEntry()
}

// MarkProcessing implements store.EntryStore.
func (s *MongoEntryStore) MarkProcessing(ctx context.Context, id uuid.UUID, jobType domain.JobType) error {
	f := fieldsFor(jobType)
	return s.updateOne(ctx, "mark_processing", id, bson.M{
		"$set": bson.M{
			f.status:     string(domain.StatusProcessing),
			"updated_at": now(),
		},
	})
}

// SetImagePrompt implements store.EntryStore.
func (s *MongoEntryStore) SetImagePrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	return s.updateOne(ctx, "set_image_prompt", id, bson.M{
		"$set": bson.M{"image_prompt": prompt, "updated_at": now()},
	})
}

// RecordFailure implements store.EntryStore.
func (s *MongoEntryStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	jobType domain.JobType,
	record domain.AttemptRecord,
	terminal bool,
) error {
	status := domain.StatusProcessing
	if terminal {
		status = domain.StatusFailed
	}
	f := fieldsFor(jobType)
	return s.updateOne(ctx, "record_failure", id, bson.M{
		"$set": bson.M{
			f.status:     string(status),
			f.retrying:   !terminal,
			"updated_at": now(),
		},
		"$push": bson.M{f.attempts: record},
	})
}

// CompleteAnalysis implements store.EntryStore.
func (s *MongoEntryStore) CompleteAnalysis(
	ctx context.Context,
	id uuid.UUID,
	result *domain.AnalysisResult,
	record domain.AttemptRecord,
) error {
	return s.updateOne(ctx, "complete_analysis", id, bson.M{
		"$set": bson.M{
			"analysis":             result,
			"analysis_status":      string(domain.StatusCompleted),
			"analysis_is_retrying": false,
			"updated_at":           now(),
		},
		"$push": bson.M{"analysis_attempts": record},
	})
}

// CompleteImage implements store.EntryStore.
func (s *MongoEntryStore) CompleteImage(
	ctx context.Context,
	id uuid.UUID,
	artifact domain.ImageArtifact,
	record domain.AttemptRecord,
) error {
	return s.updateOne(ctx, "complete_image", id, bson.M{
		"$set": bson.M{
			"image_url":         artifact.URL,
			"image_public_id":   artifact.PublicID,
			"share_image_url":   artifact.ShareImageURL,
			"image_status":      string(domain.StatusCompleted),
			"image_is_retrying": false,
			"updated_at":        now(),
		},
		"$push": bson.M{"image_generation_attempts": record},
	})
}

// ClaimManualRetry implements store.EntryStore. The claim is one conditional
// update; when it matches nothing the entry is read to report why.
func (s *MongoEntryStore) ClaimManualRetry(
	ctx context.Context,
	id, ownerID uuid.UUID,
	jobType domain.JobType,
	limit int,
) (int, error) {
	f := fieldsFor(jobType)
	filter := claimFilter(id, ownerID, f, limit)
	update := bson.M{
		"$inc": bson.M{f.retryCount: 1},
		"$set": bson.M{
			f.status:     string(domain.StatusPending),
			f.retrying:   false,
			"updated_at": now(),
		},
	}

	var doc entryDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		entry, err := doc.toEntry()
		if err != nil {
			return 0, err
		}
		return entry.ManualRetries(jobType), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, store.NewStoreError("entry", "claim_manual_retry", "update failed", err)
	}

	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return 0, claimRejection(entry, ownerID, jobType, limit)
}

// FindByStatus implements store.EntryStore.
func (s *MongoEntryStore) FindByStatus(
	ctx context.Context,
	jobType domain.JobType,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Entry, error) {
	f := fieldsFor(jobType)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, bson.M{f.status: string(status)}, opts)
	if err != nil {
		return nil, store.NewStoreError("entry", "find_by_status", "find failed", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var entries []*domain.Entry
	for cursor.Next(ctx) {
		var doc entryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		entry, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, store.NewStoreError("entry", "find_by_status", "cursor failed", err)
	}
	return entries, nil
}

func (s *MongoEntryStore) updateOne(ctx context.Context, op string, id uuid.UUID, update bson.M) error {
	result, err := s.col.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("entry update failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return store.NewStoreError("entry", op, "update failed", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrEntryNotFound
	}
	return nil
}

// claimFilter matches an entry owned by ownerID whose lifecycle failed and
// whose manual retry counter is below limit.
func claimFilter(id, ownerID uuid.UUID, f lifecycleFields, limit int) bson.M {
	return bson.M{
		"_id":        id.String(),
		"owner_id":   ownerID.String(),
		f.status:     string(domain.StatusFailed),
		f.retryCount: bson.M{"$lt": limit},
	}
}

// claimRejection explains why claimFilter did not match entry.
func claimRejection(entry *domain.Entry, ownerID uuid.UUID, jobType domain.JobType, limit int) error {
	switch {
	case entry.OwnerID != ownerID:
		return store.ErrEntryNotFound
	case entry.Status(jobType) != domain.StatusFailed:
		return fmt.Errorf("%w: %s status is %s", domain.ErrInvalidTransition, jobType, entry.Status(jobType))
	case entry.ManualRetries(jobType) >= limit:
		return store.ErrRetryLimitReached
	default:
		// Changed between the claim and the read.
		return fmt.Errorf("%w: entry changed concurrently", store.ErrUpdateFailed)
	}
}

func now() time.Time {
	return time.Now().UTC()
}
