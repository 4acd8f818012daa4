package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/ports/secondary"
)

func TestBatchRepository_GetOrCreateByChecksum(t *testing.T) {
	db := setupTestDB(t)
	f := seedCampaign(t, db, "wmt-demo")
	repo := sqlite.NewBatchRepository(db)
	ctx := context.Background()

	again, created, err := repo.GetOrCreate(ctx, &secondary.BatchRecord{
		CampaignID: f.CampaignID,
		MarketID:   f.MarketID,
		FileName:   "renamed.json",
		Checksum:   "wmt-demo-checksum",
		CreatedBy:  "admin",
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("expected identical content to reuse the batch")
	}
	if again.ID != f.BatchID || again.FileName != "batch.json" {
		t.Errorf("unexpected batch: %+v", again)
	}
	if again.Status != secondary.BatchUploaded {
		t.Errorf("expected status uploaded, got %q", again.Status)
	}
}

func TestBatchRepository_ListByCampaignAndStatus(t *testing.T) {
	db := setupTestDB(t)
	f := seedCampaign(t, db, "wmt-demo")
	repo := sqlite.NewBatchRepository(db)
	ctx := context.Background()

	second, _, err := repo.GetOrCreate(ctx, &secondary.BatchRecord{
		CampaignID: f.CampaignID,
		MarketID:   f.MarketID,
		MetadataID: f.MetadataID,
		FileName:   "second.json",
		Checksum:   "other",
		CreatedBy:  "admin",
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, f.BatchID, secondary.BatchValidated, 10, 2); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := repo.SetStatus(ctx, second.ID, secondary.BatchInvalid); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	all, err := repo.ListByCampaign(ctx, f.CampaignID)
	if err != nil {
		t.Fatalf("ListByCampaign failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != f.BatchID {
		t.Fatalf("expected both batches in creation order, got %d", len(all))
	}

	valid, err := repo.ListByCampaign(ctx, f.CampaignID, secondary.BatchValidated, secondary.BatchStaffed)
	if err != nil {
		t.Fatalf("ListByCampaign failed: %v", err)
	}
	if len(valid) != 1 {
		t.Fatalf("expected 1 validated batch, got %d", len(valid))
	}
	if valid[0].ItemCount != 10 || valid[0].DroppedCount != 2 {
		t.Errorf("counts not stored: %+v", valid[0])
	}
}

func TestItemRepository_InsertBatchSkipsExistingKeys(t *testing.T) {
	db := setupTestDB(t)
	f := seedCampaign(t, db, "wmt-demo")
	repo := sqlite.NewItemRepository(db)
	ctx := context.Background()

	seedItems(t, db, f, "a", "b")

	n, err := repo.InsertBatch(ctx, f.BatchID, []*secondary.ItemRecord{
		{ItemKey: "b", ItemType: "TGT", TaskType: "Direct", Payload: "{}", Position: 1},
		{ItemKey: "c", ItemType: "TGT", TaskType: "Direct", Payload: "{}", Position: 2},
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 new item, got %d", n)
	}

	items, err := repo.ListByBatch(ctx, f.BatchID)
	if err != nil {
		t.Fatalf("ListByBatch failed: %v", err)
	}
	var keys []string
	for _, it := range items {
		keys = append(keys, it.ItemKey)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("unexpected items: %v", keys)
	}

	count, err := repo.CountByBatch(ctx, f.BatchID)
	if err != nil || count != 3 {
		t.Errorf("CountByBatch = %d, %v; want 3", count, err)
	}
}
