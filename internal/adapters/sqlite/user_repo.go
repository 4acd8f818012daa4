package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

const userColumns = "id, username, password_hash, source_language, target_language, is_active, reserved_campaign_id, created_at"

// UserRepository implements secondary.UserRepository with SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(s scanner) (*secondary.UserRecord, error) {
	var (
		reserved  sql.NullString
		createdAt time.Time
	)
	record := &secondary.UserRecord{}
	err := s.Scan(&record.ID, &record.Username, &record.PasswordHash,
		&record.SourceLanguage, &record.TargetLanguage, &record.Active, &reserved, &createdAt)
	if err != nil {
		return nil, err
	}
	record.ReservedCampaignID = reserved.String
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the user named record.Username, inserting record when absent.
func (r *UserRepository) GetOrCreate(ctx context.Context, record *secondary.UserRecord) (*secondary.UserRecord, bool, error) {
	var (
		user    *secondary.UserRecord
		created bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanUser(tx.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE username = ?", record.Username))
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get user: %w", err)
		}

		id, err := nextID(ctx, tx, "users", "USR")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, source_language, target_language, is_active, reserved_campaign_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, record.Username, record.PasswordHash, record.SourceLanguage, record.TargetLanguage,
			record.Active, nullString(record.ReservedCampaignID),
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user, err = scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back user: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*secondary.UserRecord, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*secondary.UserRecord, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListByTeam retrieves team members ordered by username.
func (r *UserRepository) ListByTeam(ctx context.Context, teamID string) ([]*secondary.UserRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.source_language, u.target_language,
			u.is_active, u.reserved_campaign_id, u.created_at
		FROM users u JOIN team_members tm ON tm.user_id = u.id
		WHERE tm.team_id = ?
		ORDER BY u.username ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var users []*secondary.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetActive toggles the user's is_active flag.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("user", id)
	}
	return nil
}

// UpdatePasswordHash replaces the stored login hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("user", id)
	}
	return nil
}

// Ensure UserRepository implements the interface.
var _ secondary.UserRepository = (*UserRepository)(nil)
