package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/store"
)

// entryColumns is the column list read by every entry query, in scan order.
const entryColumns = `id, owner_id, text, created_at, updated_at,
	analysis_status, analysis, analysis_attempts, retry_count, analysis_is_retrying,
	image_status, image_prompt, image_url, image_public_id, share_image_url,
	image_generation_attempts, image_retry_count, image_is_retrying`

// lifecycleColumns names the columns that hold one job type's lifecycle.
type lifecycleColumns struct {
	status     string
	attempts   string
	retrying   string
	retryCount string
}

func columnsFor(jobType domain.JobType) lifecycleColumns {
	if jobType == domain.JobTypeImage {
		return lifecycleColumns{
			status:     "image_status",
			attempts:   "image_generation_attempts",
			retrying:   "image_is_retrying",
			retryCount: "image_retry_count",
		}
	}
	return lifecycleColumns{
		status:     "analysis_status",
		attempts:   "analysis_attempts",
		retrying:   "analysis_is_retrying",
		retryCount: "retry_count",
	}
}

// PostgresEntryStore implements the store.EntryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresEntryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEntryStore creates a new PostgreSQL implementation of the EntryStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresEntryStore(db *sql.DB, logger *slog.Logger) *PostgresEntryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEntryStore{
		db:     db,
		logger: logger.With(slog.String("component", "entry_store")),
	}
}

// Ensure PostgresEntryStore implements store.EntryStore interface
var _ store.EntryStore = (*PostgresEntryStore)(nil)

// Create implements store.EntryStore.Create
func (s *PostgresEntryStore) Create(ctx context.Context, entry *domain.Entry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("entry validation failed during create",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO entries (id, owner_id, text, analysis_status, image_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.Text,
		string(entry.AnalysisStatus),
		string(entry.ImageStatus),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return MapError(err)
	}

	log.Debug("entry created", slog.String("entry_id", entry.ID.String()))
	return nil
}

// GetByID implements store.EntryStore.GetByID
func (s *PostgresEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEntryNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return nil, MapError(err)
	}
	return entry, nil
}

// MarkProcessing implements store.EntryStore.MarkProcessing
func (s *PostgresEntryStore) MarkProcessing(ctx context.Context, id uuid.UUID, jobType domain.JobType) error {
	cols := columnsFor(jobType)
	query := fmt.Sprintf(`UPDATE entries SET %s = $2, updated_at = $3 WHERE id = $1`, cols.status)
	return s.exec(ctx, "mark_processing", id, query, id, string(domain.StatusProcessing), now())
}

// SetImagePrompt implements store.EntryStore.SetImagePrompt
func (s *PostgresEntryStore) SetImagePrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	query := `UPDATE entries SET image_prompt = $2, updated_at = $3 WHERE id = $1`
	return s.exec(ctx, "set_image_prompt", id, query, id, prompt, now())
}

// RecordFailure implements store.EntryStore.RecordFailure
func (s *PostgresEntryStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	jobType domain.JobType,
	record domain.AttemptRecord,
	terminal bool,
) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode attempt record: %w", err)
	}

	status := domain.StatusProcessing
	if terminal {
		status = domain.StatusFailed
	}

	cols := columnsFor(jobType)
	query := fmt.Sprintf(`UPDATE entries SET %[1]s = %[1]s || jsonb_build_array($2::jsonb), %[2]s = $3, %[3]s = $4, updated_at = $5 WHERE id = $1`,
		cols.attempts, cols.status, cols.retrying)
	return s.exec(ctx, "record_failure", id, query, id, string(payload), string(status), !terminal, now())
}

// CompleteAnalysis implements store.EntryStore.CompleteAnalysis
func (s *PostgresEntryStore) CompleteAnalysis(
	ctx context.Context,
	id uuid.UUID,
	result *domain.AnalysisResult,
	record domain.AttemptRecord,
) error {
	analysis, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode attempt record: %w", err)
	}

	query := `UPDATE entries SET analysis = $2::jsonb, analysis_attempts = analysis_attempts || jsonb_build_array($3::jsonb), analysis_status = $4, analysis_is_retrying = FALSE, updated_at = $5 WHERE id = $1`
	return s.exec(ctx, "complete_analysis", id, query,
		id, string(analysis), string(payload), string(domain.StatusCompleted), now())
}

// CompleteImage implements store.EntryStore.CompleteImage
func (s *PostgresEntryStore) CompleteImage(
	ctx context.Context,
	id uuid.UUID,
	artifact domain.ImageArtifact,
	record domain.AttemptRecord,
) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode attempt record: %w", err)
	}

	query := `UPDATE entries SET image_url = $2, image_public_id = $3, share_image_url = $4, image_generation_attempts = image_generation_attempts || jsonb_build_array($5::jsonb), image_status = $6, image_is_retrying = FALSE, updated_at = $7 WHERE id = $1`
	return s.exec(ctx, "complete_image", id, query,
		id, artifact.URL, artifact.PublicID, artifact.ShareImageURL,
		string(payload), string(domain.StatusCompleted), now())
}

// ClaimManualRetry implements store.EntryStore.ClaimManualRetry.
// The row is locked for the duration of the check and increment.
func (s *PostgresEntryStore) ClaimManualRetry(
	ctx context.Context,
	id, ownerID uuid.UUID,
	jobType domain.JobType,
	limit int,
) (int, error) {
	cols := columnsFor(jobType)
	var count int

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var owner uuid.UUID
		var status string
		selectQuery := fmt.Sprintf(`SELECT owner_id, %s, %s FROM entries WHERE id = $1 FOR UPDATE`,
			cols.status, cols.retryCount)
		if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&owner, &status, &count); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrEntryNotFound
			}
			return MapError(err)
		}

		if owner != ownerID {
			return store.ErrEntryNotFound
		}
		if domain.ProcessingStatus(status) != domain.StatusFailed {
			return fmt.Errorf("%w: %s status is %s", domain.ErrInvalidTransition, jobType, status)
		}
		if count >= limit {
			return store.ErrRetryLimitReached
		}

		updateQuery := fmt.Sprintf(`UPDATE entries SET %[1]s = %[1]s + 1, %[2]s = $2, %[3]s = FALSE, updated_at = $3 WHERE id = $1 RETURNING %[1]s`,
			cols.retryCount, cols.status, cols.retrying)
		if err := tx.QueryRowContext(ctx, updateQuery, id, string(domain.StatusPending), now()).Scan(&count); err != nil {
			return MapError(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("manual retry claimed",
		slog.String("entry_id", id.String()),
		slog.String("job_type", string(jobType)),
		slog.Int("retry_count", count))
	return count, nil
}

// FindByStatus implements store.EntryStore.FindByStatus
func (s *PostgresEntryStore) FindByStatus(
	ctx context.Context,
	jobType domain.JobType,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Entry, error) {
	cols := columnsFor(jobType)
	query := fmt.Sprintf(`SELECT %s FROM entries WHERE %s = $1 ORDER BY created_at ASC LIMIT $2`,
		entryColumns, cols.status)

	rows, err := s.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return entries, nil
}

// exec runs a single-row UPDATE and maps a missing row to ErrEntryNotFound.
func (s *PostgresEntryStore) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("entry update failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return store.NewStoreError("entry", op, "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, "entry"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrEntryNotFound
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		entry                           domain.Entry
		analysisStatus, imageStatus     string
		analysis                        []byte
		analysisAttempts, imageAttempts []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.Text,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&analysisStatus,
		&analysis,
		&analysisAttempts,
		&entry.RetryCount,
		&entry.AnalysisIsRetrying,
		&imageStatus,
		&entry.ImagePrompt,
		&entry.ImageURL,
		&entry.ImagePublicID,
		&entry.ShareImageURL,
		&imageAttempts,
		&entry.ImageRetryCount,
		&entry.ImageIsRetrying,
	)
	if err != nil {
		return nil, err
	}

	entry.AnalysisStatus = domain.ProcessingStatus(analysisStatus)
	entry.ImageStatus = domain.ProcessingStatus(imageStatus)

	if len(analysis) > 0 {
		var result domain.AnalysisResult
		if err := json.Unmarshal(analysis, &result); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
		entry.Analysis = &result
	}
	if entry.AnalysisAttempts, err = decodeAttempts(analysisAttempts); err != nil {
		return nil, err
	}
	if entry.ImageGenerationAttempts, err = decodeAttempts(imageAttempts); err != nil {
		return nil, err
	}
	return &entry, nil
}

func decodeAttempts(data []byte) ([]domain.AttemptRecord, error) {
	records := []domain.AttemptRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode attempt records: %w", err)
	}
	return records, nil
}

func now() time.Time {
	return time.Now().UTC()
}
