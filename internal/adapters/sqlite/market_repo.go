package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/appraise/internal/ports/secondary"
)

const marketColumns = "id, source_language, target_language, domain, version, created_at"

// MarketRepository implements secondary.MarketRepository with SQLite.
type MarketRepository struct {
	db *sql.DB
}

// NewMarketRepository creates a new SQLite market repository.
func NewMarketRepository(db *sql.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

func scanMarket(s scanner) (*secondary.MarketRecord, error) {
	var createdAt time.Time
	record := &secondary.MarketRecord{}
	err := s.Scan(&record.ID, &record.SourceLanguage, &record.TargetLanguage,
		&record.Domain, &record.Version, &createdAt)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// GetOrCreate returns the market with the same (source, target, domain,
// version), creating it when absent.
func (r *MarketRepository) GetOrCreate(ctx context.Context, record *secondary.MarketRecord) (*secondary.MarketRecord, bool, error) {
	var (
		market  *secondary.MarketRecord
		created bool
	)
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanMarket(tx.QueryRowContext(ctx,
			`SELECT `+marketColumns+` FROM markets
			WHERE source_language = ? AND target_language = ? AND domain = ? AND version = ?`,
			record.SourceLanguage, record.TargetLanguage, record.Domain, record.Version))
		if err == nil {
			market = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get market: %w", err)
		}

		id, err := nextID(ctx, tx, "markets", "MKT")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO markets (id, source_language, target_language, domain, version) VALUES (?, ?, ?, ?, ?)",
			id, record.SourceLanguage, record.TargetLanguage, record.Domain, record.Version,
		); err != nil {
			return fmt.Errorf("failed to create market: %w", err)
		}
		market, err = scanMarket(tx.QueryRowContext(ctx, "SELECT "+marketColumns+" FROM markets WHERE id = ?", id))
		if err != nil {
			return fmt.Errorf("failed to read back market: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return market, created, nil
}

// GetByID retrieves a market by its ID.
func (r *MarketRepository) GetByID(ctx context.Context, id string) (*secondary.MarketRecord, error) {
	market, err := scanMarket(r.db.QueryRowContext(ctx, "SELECT "+marketColumns+" FROM markets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("market", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	return market, nil
}

// FindLatest returns the highest-version market for the pair, breaking
// ties by the most recently created row. An empty domain matches any domain.
func (r *MarketRepository) FindLatest(ctx context.Context, source, target, domain string) (*secondary.MarketRecord, error) {
	market, err := scanMarket(r.db.QueryRowContext(ctx,
		`SELECT `+marketColumns+` FROM markets
		WHERE source_language = ? AND target_language = ? AND (? = '' OR domain = ?)
		ORDER BY version DESC, CAST(SUBSTR(id, 5) AS INTEGER) DESC
		LIMIT 1`,
		source, target, domain, domain,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("market", fmt.Sprintf("%s-%s/%s", source, target, domain))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find market: %w", err)
	}
	return market, nil
}

// Ensure MarketRepository implements the interface.
var _ secondary.MarketRepository = (*MarketRepository)(nil)
