package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

const metadataColumns = "id, market_id, task_type, corpus, version, quota, instructions, created_at"

// MetadataRepository implements secondary.MetadataRepository with SQLite.
type MetadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository creates a new SQLite metadata repository.
func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

func scanMetadata(s scanner) (*secondary.MetadataRecord, error) {
	var (
		instructions sql.NullString
		createdAt    time.Time
	)
	record := &secondary.MetadataRecord{}
	err := s.Scan(&record.ID, &record.MarketID, &record.TaskType, &record.Corpus,
		&record.Version, &record.Quota, &instructions, &createdAt)
	if err != nil {
		return nil, err
	}
	record.Instructions = instructions.String
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the metadata with the same (market, task type, corpus,
// version), creating it when absent. Existing rows are never updated.
func (r *MetadataRepository) GetOrCreate(ctx context.Context, record *secondary.MetadataRecord) (*secondary.MetadataRecord, bool, error) {
	var (
		metadata *secondary.MetadataRecord
		created  bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanMetadata(tx.QueryRowContext(ctx,
			`SELECT `+metadataColumns+` FROM metadata
			WHERE market_id = ? AND task_type = ? AND corpus = ? AND version = ?`,
			record.MarketID, record.TaskType, record.Corpus, record.Version))
		if err == nil {
			metadata = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get metadata: %w", err)
		}

		id, err := nextID(ctx, tx, "metadata", "META")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata (id, market_id, task_type, corpus, version, quota, instructions)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, record.MarketID, record.TaskType, record.Corpus, record.Version, record.Quota,
			nullString(record.Instructions),
		); err != nil {
			return fmt.Errorf("failed to create metadata: %w", err)
		}
		metadata, err = scanMetadata(tx.QueryRowContext(ctx,
			"SELECT "+metadataColumns+" FROM metadata WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back metadata: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return metadata, created, nil
}

// GetByID retrieves metadata by its ID.
func (r *MetadataRepository) GetByID(ctx context.Context, id string) (*secondary.MetadataRecord, error) {
	metadata, err := scanMetadata(r.db.QueryRowContext(ctx,
		"SELECT "+metadataColumns+" FROM metadata WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("metadata", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	return metadata, nil
}

// FindLatest returns the highest-version metadata of a task type for a
// market, breaking ties by the most recently created row.
func (r *MetadataRepository) FindLatest(ctx context.Context, marketID, taskType string) (*secondary.MetadataRecord, error) {
	metadata, err := scanMetadata(r.db.QueryRowContext(ctx,
		`SELECT `+metadataColumns+` FROM metadata
		WHERE market_id = ? AND task_type = ?
		ORDER BY version DESC, CAST(SUBSTR(id, 6) AS INTEGER) DESC
		LIMIT 1`,
		marketID, taskType,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("metadata", marketID+"/"+taskType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find metadata: %w", err)
	}
	return metadata, nil
}

// Ensure MetadataRepository implements the interface.
var _ secondary.MetadataRepository = (*MetadataRepository)(nil)
