package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/secondary"
)

// Integration tests verify cross-repository workflows and constraints.

// ============================================================================
// Campaign Lifecycle Tests
// ============================================================================

func TestIntegration_BatchLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedCampaign(t, db, "wmt-demo")
	users := seedUsers(t, db, f, "engdeu0101", "engdeu0102")
	items := seedItems(t, db, f, "1", "2")

	batchRepo := sqlite.NewBatchRepository(db)
	agendaRepo := sqlite.NewAgendaRepository(db)

	if err := batchRepo.UpdateStatus(ctx, f.BatchID, secondary.BatchValidated, 2, 0); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	// Staff each item once, alternating annotators.
	for i, item := range items {
		ok, err := agendaRepo.AssignIfUnderQuota(ctx, &secondary.AgendaEntryRecord{
			CampaignID: f.CampaignID,
			ItemID:     item.ID,
			UserID:     users[i%len(users)].ID,
			TaskType:   "Direct",
		}, 1)
		if err != nil {
			t.Fatalf("AssignIfUnderQuota failed: %v", err)
		}
		if !ok {
			t.Fatalf("expected item %s to be assigned", item.ItemKey)
		}
	}
	if err := batchRepo.SetStatus(ctx, f.BatchID, secondary.BatchStaffed); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	staffed, err := batchRepo.ListByCampaign(ctx, f.CampaignID, secondary.BatchStaffed)
	if err != nil {
		t.Fatalf("ListByCampaign failed: %v", err)
	}
	if len(staffed) != 1 || staffed[0].ItemCount != 2 {
		t.Fatalf("expected one staffed batch with 2 items, got %+v", staffed)
	}

	// The first annotator completes their task.
	task, err := agendaRepo.NextAssigned(ctx, users[0].ID, "Direct")
	if err != nil || task == nil {
		t.Fatalf("NextAssigned failed: %v (task=%v)", err, task)
	}
	if task.BatchID != f.BatchID {
		t.Errorf("expected batch %s, got %s", f.BatchID, task.BatchID)
	}
	done, err := agendaRepo.Complete(ctx, &secondary.CompletionRecord{
		EntryID:     task.ID,
		UserID:      users[0].ID,
		Payload:     `{"score":99}`,
		CompletedAt: "2026-01-01T00:00:00.000000Z",
	})
	if err != nil || !done {
		t.Fatalf("Complete failed: %v (done=%v)", err, done)
	}

	cov, err := agendaRepo.CoverageByBatch(ctx, f.BatchID, 1)
	if err != nil {
		t.Fatalf("CoverageByBatch failed: %v", err)
	}
	if cov.Items != 2 || cov.Assigned != 1 || cov.Completed != 1 || cov.FullyStaffed != 2 {
		t.Errorf("unexpected coverage %+v", cov)
	}
}

func TestIntegration_TeamMembership(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedCampaign(t, db, "wmt-demo")
	users := seedUsers(t, db, f, "engdeu0101")

	teamRepo := sqlite.NewTeamRepository(db)

	added, err := teamRepo.AddMember(ctx, f.TeamID, users[0].ID)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if added {
		t.Error("expected repeated AddMember to report not added")
	}
	if err := teamRepo.AttachToCampaign(ctx, f.CampaignID, f.TeamID); err != nil {
		t.Errorf("expected repeated AttachToCampaign to succeed, got %v", err)
	}

	team, err := teamRepo.GetByCampaign(ctx, f.CampaignID)
	if err != nil {
		t.Fatalf("GetByCampaign failed: %v", err)
	}
	if team.ID != f.TeamID {
		t.Errorf("expected team %s, got %s", f.TeamID, team.ID)
	}

	other := seedCampaign(t, db, "other")
	if _, err := teamRepo.GetByCampaign(ctx, "CAMP-999"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown campaign, got %v", err)
	}
	if other.TeamID == f.TeamID {
		t.Error("expected a separate team per campaign")
	}
}

func TestIntegration_CredentialsFollowUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedCampaign(t, db, "wmt-demo")
	users := seedUsers(t, db, f, "engdeu0101")

	credRepo := sqlite.NewCredentialRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	stored, created, err := credRepo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
		UserID:     users[0].ID,
		CampaignID: f.CampaignID,
		Username:   users[0].Username,
		Password:   "first",
	})
	if err != nil || !created {
		t.Fatalf("InsertIfAbsent failed: %v (created=%v)", err, created)
	}
	if err := userRepo.UpdatePasswordHash(ctx, users[0].ID, "hash-of-first"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}

	if err := credRepo.Reset(ctx, users[0].ID, f.CampaignID, "second"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	got, err := credRepo.Get(ctx, users[0].ID, f.CampaignID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Password != "second" || got.CreatedAt != stored.CreatedAt {
		t.Errorf("expected reset password with original creation time, got %+v", got)
	}

	user, err := userRepo.GetByUsername(ctx, "engdeu0101")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if user.PasswordHash != "hash-of-first" {
		t.Errorf("expected stored hash, got %q", user.PasswordHash)
	}
}

func TestIntegration_IDGenerationAcrossRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := seedCampaign(t, db, "first")
	second := seedCampaign(t, db, "second")

	if first.CampaignID != "CAMP-001" || second.CampaignID != "CAMP-002" {
		t.Errorf("expected CAMP-001 and CAMP-002, got %s and %s", first.CampaignID, second.CampaignID)
	}
	if first.TeamID != "TEAM-001" || second.TeamID != "TEAM-002" {
		t.Errorf("expected TEAM-001 and TEAM-002, got %s and %s", first.TeamID, second.TeamID)
	}
	// Both campaigns share the market, so only one was created.
	if first.MarketID != second.MarketID {
		t.Errorf("expected shared market, got %s and %s", first.MarketID, second.MarketID)
	}

	logRepo := sqlite.NewRunLogRepository(db)
	rec := &secondary.RunLogRecord{RunID: "run", EntityType: "campaign", EntityID: first.CampaignID, Action: "create"}
	if err := logRepo.Append(ctx, rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if rec.ID != "LOG-001" {
		t.Errorf("expected LOG-001, got %s", rec.ID)
	}
}
