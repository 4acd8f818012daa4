package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/appraise/internal/ports/secondary"
)

// ItemRepository implements secondary.ItemRepository with SQLite.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new SQLite item repository.
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// InsertBatch stores items in one transaction. Keys already present in the
// batch are skipped, so re-running a batch is a no-op.
func (r *ItemRepository) InsertBatch(ctx context.Context, batchID string, items []*secondary.ItemRecord) (int, error) {
	inserted := 0
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO items (id, batch_id, item_key, item_type, task_type, payload, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare item insert: %w", err)
		}
		defer stmt.Close()

		for _, item := range items {
			id := item.ID
			if id == "" {
				id = uuid.NewString()
			}
			result, err := stmt.ExecContext(ctx,
				id, batchID, item.ItemKey, item.ItemType, item.TaskType, item.Payload, item.Position)
			if err != nil {
				return fmt.Errorf("failed to insert item %s: %w", item.ItemKey, err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				item.ID = id
				item.BatchID = batchID
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListByBatch retrieves a batch's items in position order.
func (r *ItemRepository) ListByBatch(ctx context.Context, batchID string) ([]*secondary.ItemRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, batch_id, item_key, item_type, task_type, payload, position
		FROM items WHERE batch_id = ? ORDER BY position ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*secondary.ItemRecord
	for rows.Next() {
		item := &secondary.ItemRecord{}
		err := rows.Scan(&item.ID, &item.BatchID, &item.ItemKey, &item.ItemType,
			&item.TaskType, &item.Payload, &item.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountByBatch returns the number of stored items of a batch.
func (r *ItemRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE batch_id = ?", batchID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// Ensure ItemRepository implements the interface.
var _ secondary.ItemRepository = (*ItemRepository)(nil)
