package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

// CredentialRepository implements secondary.CredentialRepository with SQLite.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new SQLite credential repository.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// InsertIfAbsent stores record unless a credential already exists for
// (user, campaign). The first writer wins; the stored row is returned.
func (r *CredentialRepository) InsertIfAbsent(ctx context.Context, record *secondary.CredentialRecord) (*secondary.CredentialRecord, bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO credentials (user_id, campaign_id, username, password)
		VALUES (?, ?, ?, ?)`,
		record.UserID, record.CampaignID, record.Username, record.Password,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store credential: %w", err)
	}
	n, _ := result.RowsAffected()

	stored, err := r.Get(ctx, record.UserID, record.CampaignID)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

// Reset replaces the password of an existing credential.
func (r *CredentialRepository) Reset(ctx context.Context, userID, campaignID, password string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password = ?, reset_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND campaign_id = ?`,
		password, userID, campaignID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset credential: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("credential", userID+"/"+campaignID)
	}
	return nil
}

// Get retrieves the credential for (user, campaign).
func (r *CredentialRepository) Get(ctx context.Context, userID, campaignID string) (*secondary.CredentialRecord, error) {
	var (
		createdAt time.Time
		resetAt   sql.NullTime
	)
	record := &secondary.CredentialRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, campaign_id, username, password, created_at, reset_at
		FROM credentials WHERE user_id = ? AND campaign_id = ?`,
		userID, campaignID,
	).Scan(&record.UserID, &record.CampaignID, &record.Username, &record.Password, &createdAt, &resetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("credential", userID+"/"+campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	record.CreatedAt = formatTime(createdAt)
	if resetAt.Valid {
		record.ResetAt = formatTime(resetAt.Time)
	}
	return record, nil
}

// Ensure CredentialRepository implements the interface.
var _ secondary.CredentialRepository = (*CredentialRepository)(nil)
