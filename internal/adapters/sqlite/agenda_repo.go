package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/appraise/internal/ports/secondary"
)

// timestampLayout is fixed-width so TEXT timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

const agendaTaskColumns = `e.id, e.campaign_id, e.item_id, e.user_id, e.task_type, e.state,
	e.assigned_at, e.completed_at, e.payload, e.start_ts, e.end_ts,
	i.item_key, i.item_type, i.payload, i.batch_id`

// AgendaRepository implements secondary.AgendaRepository with SQLite.
type AgendaRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAgendaRepository creates a new SQLite agenda repository.
func NewAgendaRepository(db *sql.DB) *AgendaRepository {
	return &AgendaRepository{db: db, now: time.Now}
}

// Timestamp formats t the way agenda timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func scanAgendaTask(s scanner) (*secondary.AgendaTaskRecord, error) {
	var completedAt, payload, startTS, endTS sql.NullString
	record := &secondary.AgendaTaskRecord{}
	err := s.Scan(&record.ID, &record.CampaignID, &record.ItemID, &record.UserID,
		&record.TaskType, &record.State, &record.AssignedAt,
		&completedAt, &payload, &startTS, &endTS,
		&record.ItemKey, &record.ItemType, &record.ItemPayload, &record.BatchID)
	if err != nil {
		return nil, err
	}
	record.CompletedAt = completedAt.String
	record.Payload = payload.String
	record.StartTS = startTS.String
	record.EndTS = endTS.String
	return record, nil
}

// AssignIfUnderQuota inserts entry only when the item holds fewer than
// quota entries and the user does not already hold it. The count and the
// insert form one statement, so concurrent writers cannot overshoot.
func (r *AgendaRepository) AssignIfUnderQuota(ctx context.Context, entry *secondary.AgendaEntryRecord, quota int) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AssignedAt == "" {
		entry.AssignedAt = Timestamp(r.now())
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO agenda_entries (id, campaign_id, item_id, user_id, task_type, state, assigned_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM agenda_entries WHERE item_id = ?) < ?`,
		entry.ID, entry.CampaignID, entry.ItemID, entry.UserID, entry.TaskType,
		secondary.EntryAssigned, entry.AssignedAt,
		entry.ItemID, quota,
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign item %s: %w", entry.ItemID, err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		entry.State = secondary.EntryAssigned
	}
	return n > 0, nil
}

// ListByBatch retrieves all entries for a batch's items.
func (r *AgendaRepository) ListByBatch(ctx context.Context, batchID string) ([]*secondary.AgendaEntryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+agendaTaskColumns+`
		FROM agenda_entries e JOIN items i ON i.id = e.item_id
		WHERE i.batch_id = ?
		ORDER BY i.position ASC, e.assigned_at ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list agenda entries: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.AgendaEntryRecord
	for rows.Next() {
		task, err := scanAgendaTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agenda entry: %w", err)
		}
		entries = append(entries, &task.AgendaEntryRecord)
	}
	return entries, rows.Err()
}

// LoadByCampaign counts entries per user in a campaign.
func (r *AgendaRepository) LoadByCampaign(ctx context.Context, campaignID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, COUNT(*) FROM agenda_entries WHERE campaign_id = ? GROUP BY user_id",
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load agenda: %w", err)
	}
	defer rows.Close()

	load := make(map[string]int)
	for rows.Next() {
		var (
			userID string
			n      int
		)
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		load[userID] = n
	}
	return load, rows.Err()
}

// GetByID retrieves an entry with its item.
func (r *AgendaRepository) GetByID(ctx context.Context, id string) (*secondary.AgendaTaskRecord, error) {
	task, err := scanAgendaTask(r.db.QueryRowContext(ctx,
		`SELECT `+agendaTaskColumns+`
		FROM agenda_entries e JOIN items i ON i.id = e.item_id
		WHERE e.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("agenda entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agenda entry: %w", err)
	}
	return task, nil
}

// NextAssigned returns the user's oldest open entry of a task type, or nil.
func (r *AgendaRepository) NextAssigned(ctx context.Context, userID, taskType string) (*secondary.AgendaTaskRecord, error) {
	task, err := scanAgendaTask(r.db.QueryRowContext(ctx,
		`SELECT `+agendaTaskColumns+`
		FROM agenda_entries e JOIN items i ON i.id = e.item_id
		WHERE e.user_id = ? AND e.task_type = ? AND e.state = ?
		ORDER BY e.assigned_at ASC, i.position ASC, e.id ASC
		LIMIT 1`,
		userID, taskType, secondary.EntryAssigned,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next agenda entry: %w", err)
	}
	return task, nil
}

// Complete moves an assigned entry owned by c.UserID to completed.
// It reports false when the entry is missing, foreign or already completed.
func (r *AgendaRepository) Complete(ctx context.Context, c *secondary.CompletionRecord) (bool, error) {
	completedAt := c.CompletedAt
	if completedAt == "" {
		completedAt = Timestamp(r.now())
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE agenda_entries
		SET state = ?, completed_at = ?, payload = ?, start_ts = ?, end_ts = ?
		WHERE id = ? AND user_id = ? AND state = ?`,
		secondary.EntryCompleted, completedAt, c.Payload, c.StartTS, c.EndTS,
		c.EntryID, c.UserID, secondary.EntryAssigned,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete agenda entry: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// CountByItem counts entries of an item in any state.
func (r *AgendaRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM agenda_entries WHERE item_id = ?", itemID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count agenda entries: %w", err)
	}
	return n, nil
}

// CoverageByBatch summarizes staffing of a batch against quota.
func (r *AgendaRepository) CoverageByBatch(ctx context.Context, batchID string, quota int) (*secondary.CoverageRecord, error) {
	c := &secondary.CoverageRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE batch_id = ?", batchID,
	).Scan(&c.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN e.state = 'assigned' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.state = 'completed' THEN 1 ELSE 0 END), 0)
		FROM agenda_entries e JOIN items i ON i.id = e.item_id
		WHERE i.batch_id = ?`,
		batchID,
	).Scan(&c.Assigned, &c.Completed)
	if err != nil {
		return nil, fmt.Errorf("failed to count agenda entries: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
			SELECT i.id FROM items i JOIN agenda_entries e ON e.item_id = i.id
			WHERE i.batch_id = ?
			GROUP BY i.id
			HAVING COUNT(*) >= ?
		)`,
		batchID, quota,
	).Scan(&c.FullyStaffed)
	if err != nil {
		return nil, fmt.Errorf("failed to count staffed items: %w", err)
	}
	return c, nil
}

// Ensure AgendaRepository implements the interface.
var _ secondary.AgendaRepository = (*AgendaRepository)(nil)
