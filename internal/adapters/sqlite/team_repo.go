package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

// TeamRepository implements secondary.TeamRepository with SQLite.
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository creates a new SQLite team repository.
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func scanTeam(s scanner) (*secondary.TeamRecord, error) {
	var createdAt time.Time
	record := &secondary.TeamRecord{}
	if err := s.Scan(&record.ID, &record.Name, &record.Owner, &createdAt); err != nil {
		return nil, err
	}
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the team named record.Name, creating it when absent.
func (r *TeamRepository) GetOrCreate(ctx context.Context, record *secondary.TeamRecord) (*secondary.TeamRecord, bool, error) {
	var (
		team    *secondary.TeamRecord
		created bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanTeam(tx.QueryRowContext(ctx,
			"SELECT id, name, owner, created_at FROM teams WHERE name = ?", record.Name))
		if err == nil {
			team = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get team: %w", err)
		}

		id, err := nextID(ctx, tx, "teams", "TEAM")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO teams (id, name, owner) VALUES (?, ?, ?)", id, record.Name, record.Owner,
		); err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		team, err = scanTeam(tx.QueryRowContext(ctx,
			"SELECT id, name, owner, created_at FROM teams WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back team: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return team, created, nil
}

// AddMember adds a user to a team. added is false when already a member.
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)", teamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add team member: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// AttachToCampaign links a team to a campaign.
func (r *TeamRepository) AttachToCampaign(ctx context.Context, campaignID, teamID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO campaign_teams (campaign_id, team_id) VALUES (?, ?)", campaignID, teamID)
	if err != nil {
		return fmt.Errorf("failed to attach team: %w", err)
	}
	return nil
}

// GetByCampaign retrieves the first team linked to a campaign.
func (r *TeamRepository) GetByCampaign(ctx context.Context, campaignID string) (*secondary.TeamRecord, error) {
	team, err := scanTeam(r.db.QueryRowContext(ctx,
		`SELECT t.id, t.name, t.owner, t.created_at
		FROM teams t JOIN campaign_teams ct ON ct.team_id = t.id
		WHERE ct.campaign_id = ?
		ORDER BY t.id ASC LIMIT 1`,
		campaignID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("team for campaign", campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// Ensure TeamRepository implements the interface.
var _ secondary.TeamRepository = (*TeamRepository)(nil)
