package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

const campaignColumns = "id, name, owner, campaign_no, created_at"

// CampaignRepository implements secondary.CampaignRepository with SQLite.
type CampaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new SQLite campaign repository.
func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func scanCampaign(s scanner) (*secondary.CampaignRecord, error) {
	var createdAt time.Time
	record := &secondary.CampaignRecord{}
	if err := s.Scan(&record.ID, &record.Name, &record.Owner, &record.CampaignNo, &createdAt); err != nil {
		return nil, err
	}
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the campaign named record.Name, creating it when absent.
// An existing campaign is returned unchanged; callers compare owner and number.
func (r *CampaignRepository) GetOrCreate(ctx context.Context, record *secondary.CampaignRecord) (*secondary.CampaignRecord, bool, error) {
	var (
		campaign *secondary.CampaignRecord
		created  bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanCampaign(tx.QueryRowContext(ctx,
			"SELECT "+campaignColumns+" FROM campaigns WHERE name = ?", record.Name))
		if err == nil {
			campaign = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get campaign: %w", err)
		}

		id, err := nextID(ctx, tx, "campaigns", "CAMP")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO campaigns (id, name, owner, campaign_no) VALUES (?, ?, ?, ?)",
			id, record.Name, record.Owner, record.CampaignNo,
		); err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		campaign, err = scanCampaign(tx.QueryRowContext(ctx,
			"SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back campaign: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return campaign, created, nil
}

// GetByID retrieves a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*secondary.CampaignRecord, error) {
	campaign, err := scanCampaign(r.db.QueryRowContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("campaign", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// GetByName retrieves a campaign by its unique name.
func (r *CampaignRepository) GetByName(ctx context.Context, name string) (*secondary.CampaignRecord, error) {
	campaign, err := scanCampaign(r.db.QueryRowContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("campaign", fmt.Sprintf("'%s'", name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// List retrieves all campaigns ordered by ID.
func (r *CampaignRepository) List(ctx context.Context) ([]*secondary.CampaignRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*secondary.CampaignRecord
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

// Ensure CampaignRepository implements the interface.
var _ secondary.CampaignRepository = (*CampaignRepository)(nil)
