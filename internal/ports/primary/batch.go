package primary

import (
	"context"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/core/tasktype"
)

// BatchService defines the primary port for batch registration.
type BatchService interface {
	// Ingest registers, validates and normalizes uploaded batches.
	// Batches already registered with identical content are reused.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// IngestRequest contains the batches of one upload.
type IngestRequest struct {
	CampaignID string
	Manifest   *manifest.Context
	TaskType   tasktype.Type
	Batches    []batch.RawBatch
	CreatedBy  string
	// MaxCount bounds how many batches are processed; <= 0 means no limit.
	MaxCount int
}

// IngestResult reports every batch of the upload.
type IngestResult struct {
	Batches  []*BatchOutcome
	Warnings []string
}

// Processed counts batches that reached validated in this run.
func (r *IngestResult) Processed() int {
	n := 0
	for _, b := range r.Batches {
		if b.Created && b.Status == "validated" {
			n++
		}
	}
	return n
}

// BatchOutcome describes what happened to one batch.
type BatchOutcome struct {
	BatchID  string
	FileName string
	Status   string
	// Created is false when an earlier run already processed the batch.
	Created     bool
	Items       int
	Dropped     int
	Violations  []string
	DropReasons []string
}
