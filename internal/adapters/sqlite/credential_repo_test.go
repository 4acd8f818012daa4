package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/secondary"
)

func TestCredentialRepository_FirstWriterWins(t *testing.T) {
	db := setupTestDB(t)
	f := seedCampaign(t, db, "wmt-demo")
	users := seedUsers(t, db, f, "engdeu0101")
	repo := sqlite.NewCredentialRepository(db)
	ctx := context.Background()

	first, created, err := repo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
		UserID: users[0].ID, CampaignID: f.CampaignID, Username: "engdeu0101", Password: "first",
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if !created || first.Password != "first" {
		t.Fatalf("expected new credential, got %+v (created=%v)", first, created)
	}

	second, created, err := repo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
		UserID: users[0].ID, CampaignID: f.CampaignID, Username: "engdeu0101", Password: "second",
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if created || second.Password != "first" {
		t.Errorf("expected stored password to win, got %+v (created=%v)", second, created)
	}
}

func TestCredentialRepository_Reset(t *testing.T) {
	db := setupTestDB(t)
	f := seedCampaign(t, db, "wmt-demo")
	users := seedUsers(t, db, f, "engdeu0101")
	repo := sqlite.NewCredentialRepository(db)
	ctx := context.Background()

	if err := repo.Reset(ctx, users[0].ID, f.CampaignID, "x"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before issue, got %v", err)
	}

	if _, _, err := repo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
		UserID: users[0].ID, CampaignID: f.CampaignID, Username: "engdeu0101", Password: "old",
	}); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if err := repo.Reset(ctx, users[0].ID, f.CampaignID, "new"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	got, err := repo.Get(ctx, users[0].ID, f.CampaignID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Password != "new" || got.ResetAt == "" {
		t.Errorf("expected reset credential, got %+v", got)
	}
}
