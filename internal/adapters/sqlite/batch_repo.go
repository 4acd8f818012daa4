package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

const batchColumns = "id, campaign_id, market_id, metadata_id, file_name, checksum, created_by, status, item_count, dropped_count, created_at"

// BatchRepository implements secondary.BatchRepository with SQLite.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new SQLite batch repository.
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func scanBatch(s scanner) (*secondary.BatchRecord, error) {
	var (
		metadataID sql.NullString
		createdAt  time.Time
	)
	record := &secondary.BatchRecord{}
	err := s.Scan(&record.ID, &record.CampaignID, &record.MarketID, &metadataID,
		&record.FileName, &record.Checksum, &record.CreatedBy, &record.Status,
		&record.ItemCount, &record.DroppedCount, &createdAt)
	if err != nil {
		return nil, err
	}
	record.MetadataID = metadataID.String
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the campaign's batch with record.Checksum, creating
// it with status uploaded when absent.
func (r *BatchRepository) GetOrCreate(ctx context.Context, record *secondary.BatchRecord) (*secondary.BatchRecord, bool, error) {
	var (
		batch   *secondary.BatchRecord
		created bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanBatch(tx.QueryRowContext(ctx,
			"SELECT "+batchColumns+" FROM batches WHERE campaign_id = ? AND checksum = ?",
			record.CampaignID, record.Checksum))
		if err == nil {
			batch = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get batch: %w", err)
		}

		id, err := nextID(ctx, tx, "batches", "BATCH")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, campaign_id, market_id, metadata_id, file_name, checksum, created_by, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, record.CampaignID, record.MarketID, nullString(record.MetadataID),
			record.FileName, record.Checksum, record.CreatedBy, secondary.BatchUploaded,
		); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}
		batch, err = scanBatch(tx.QueryRowContext(ctx, "SELECT "+batchColumns+" FROM batches WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back batch: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return batch, created, nil
}

// GetByID retrieves a batch by its ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*secondary.BatchRecord, error) {
	batch, err := scanBatch(r.db.QueryRowContext(ctx, "SELECT "+batchColumns+" FROM batches WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("batch", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListByCampaign retrieves a campaign's batches in creation order,
// restricted to statuses when any are given.
func (r *BatchRepository) ListByCampaign(ctx context.Context, campaignID string, statuses ...string) ([]*secondary.BatchRecord, error) {
	query := "SELECT " + batchColumns + " FROM batches WHERE campaign_id = ?"
	args := []any{campaignID}
	if len(statuses) > 0 {
		query += " AND status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")"
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += " ORDER BY CAST(SUBSTR(id, 7) AS INTEGER) ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*secondary.BatchRecord
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// UpdateStatus records a status change along with item counts.
func (r *BatchRepository) UpdateStatus(ctx context.Context, id, status string, itemCount, droppedCount int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, item_count = ?, dropped_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, itemCount, droppedCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("batch", id)
	}
	return nil
}

// SetStatus changes only the status.
func (r *BatchRepository) SetStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE batches SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("batch", id)
	}
	return nil
}

// Ensure BatchRepository implements the interface.
var _ secondary.BatchRepository = (*BatchRepository)(nil)
