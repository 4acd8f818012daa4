// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() (or db.Open, which runs the
// migrations) so tests run against the authoritative schema.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/db"
	"github.com/example/appraise/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// openFileDB opens a migrated database file in a temp dir. Callers close it.
// Concurrency tests need a real file: each pooled connection to ":memory:"
// would see its own empty database.
func openFileDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open file db: %v", err)
	}
	return conn
}

// fixture holds the ids of a seeded campaign with one batch.
type fixture struct {
	CampaignID string
	TeamID     string
	MarketID   string
	MetadataID string
	BatchID    string
}

// seedCampaign creates a campaign, its team, a market, Direct metadata and
// an empty batch.
func seedCampaign(t *testing.T, conn *sql.DB, name string) fixture {
	t.Helper()
	ctx := context.Background()

	campaign, _, err := sqlite.NewCampaignRepository(conn).GetOrCreate(ctx,
		&secondary.CampaignRecord{Name: name, Owner: "admin", CampaignNo: 1})
	if err != nil {
		t.Fatalf("failed to seed campaign: %v", err)
	}
	teams := sqlite.NewTeamRepository(conn)
	team, _, err := teams.GetOrCreate(ctx, &secondary.TeamRecord{Name: name, Owner: "admin"})
	if err != nil {
		t.Fatalf("failed to seed team: %v", err)
	}
	if err := teams.AttachToCampaign(ctx, campaign.ID, team.ID); err != nil {
		t.Fatalf("failed to attach team: %v", err)
	}
	market, _, err := sqlite.NewMarketRepository(conn).GetOrCreate(ctx,
		&secondary.MarketRecord{SourceLanguage: "eng", TargetLanguage: "deu", Domain: "general", Version: 1})
	if err != nil {
		t.Fatalf("failed to seed market: %v", err)
	}
	metadata, _, err := sqlite.NewMetadataRepository(conn).GetOrCreate(ctx,
		&secondary.MetadataRecord{MarketID: market.ID, TaskType: "Direct", Corpus: "default", Version: 1, Quota: 1})
	if err != nil {
		t.Fatalf("failed to seed metadata: %v", err)
	}
	batch, _, err := sqlite.NewBatchRepository(conn).GetOrCreate(ctx, &secondary.BatchRecord{
		CampaignID: campaign.ID,
		MarketID:   market.ID,
		MetadataID: metadata.ID,
		FileName:   "batch.json",
		Checksum:   name + "-checksum",
		CreatedBy:  "admin",
	})
	if err != nil {
		t.Fatalf("failed to seed batch: %v", err)
	}

	return fixture{
		CampaignID: campaign.ID,
		TeamID:     team.ID,
		MarketID:   market.ID,
		MetadataID: metadata.ID,
		BatchID:    batch.ID,
	}
}

// seedUsers creates team members with the given usernames.
func seedUsers(t *testing.T, conn *sql.DB, f fixture, usernames ...string) []*secondary.UserRecord {
	t.Helper()
	ctx := context.Background()
	users := sqlite.NewUserRepository(conn)
	teams := sqlite.NewTeamRepository(conn)

	var out []*secondary.UserRecord
	for _, name := range usernames {
		user, _, err := users.GetOrCreate(ctx, &secondary.UserRecord{
			Username:           name,
			PasswordHash:       "x",
			SourceLanguage:     "eng",
			TargetLanguage:     "deu",
			Active:             true,
			ReservedCampaignID: f.CampaignID,
		})
		if err != nil {
			t.Fatalf("failed to seed user %s: %v", name, err)
		}
		if _, err := teams.AddMember(ctx, f.TeamID, user.ID); err != nil {
			t.Fatalf("failed to add member %s: %v", name, err)
		}
		out = append(out, user)
	}
	return out
}

// seedItems stores items with the given keys into the fixture batch.
func seedItems(t *testing.T, conn *sql.DB, f fixture, keys ...string) []*secondary.ItemRecord {
	t.Helper()

	records := make([]*secondary.ItemRecord, len(keys))
	for i, key := range keys {
		records[i] = &secondary.ItemRecord{
			ItemKey:  key,
			ItemType: "TGT",
			TaskType: "Direct",
			Payload:  `{"item_id":"` + key + `"}`,
			Position: i,
		}
	}
	if _, err := sqlite.NewItemRepository(conn).InsertBatch(context.Background(), f.BatchID, records); err != nil {
		t.Fatalf("failed to seed items: %v", err)
	}
	return records
}
