package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

// RunLogRepository implements secondary.RunLogRepository with SQLite.
type RunLogRepository struct {
	db *sql.DB
}

// NewRunLogRepository creates a new SQLite run log repository.
func NewRunLogRepository(db *sql.DB) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// Append persists a new run log entry.
func (r *RunLogRepository) Append(ctx context.Context, record *secondary.RunLogRecord) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx, "run_logs", "LOG")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_logs (id, run_id, campaign_id, actor_id, entity_type, entity_id, action, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			record.RunID,
			nullString(record.CampaignID),
			nullString(record.ActorID),
			record.EntityType,
			record.EntityID,
			record.Action,
			nullString(record.Detail),
		)
		if err != nil {
			return fmt.Errorf("failed to create run log: %w", err)
		}
		record.ID = id
		return nil
	})
}

// List retrieves log entries matching the given filters.
func (r *RunLogRepository) List(ctx context.Context, filters secondary.RunLogFilters) ([]*secondary.RunLogRecord, error) {
	query := `SELECT id, run_id, campaign_id, actor_id, entity_type, entity_id, action, detail, created_at FROM run_logs WHERE 1=1`
	args := []any{}

	if filters.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filters.RunID)
	}

	if filters.CampaignID != "" {
		query += " AND campaign_id = ?"
		args = append(args, filters.CampaignID)
	}

	if filters.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filters.EntityType)
	}

	query += " ORDER BY CAST(SUBSTR(id, 5) AS INTEGER) DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer rows.Close()

	var logs []*secondary.RunLogRecord
	for rows.Next() {
		var (
			campaignID sql.NullString
			actorID    sql.NullString
			detail     sql.NullString
			createdAt  time.Time
		)
		record := &secondary.RunLogRecord{}
		if err := rows.Scan(&record.ID, &record.RunID, &campaignID, &actorID,
			&record.EntityType, &record.EntityID, &record.Action, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		record.CampaignID = campaignID.String
		record.ActorID = actorID.String
		record.Detail = detail.String
		record.CreatedAt = formatTime(createdAt)
		logs = append(logs, record)
	}
	return logs, rows.Err()
}

// Ensure RunLogRepository implements the interface
var _ secondary.RunLogRepository = (*RunLogRepository)(nil)
