package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/core/normalize"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/core/validation"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// BatchServiceImpl implements the BatchService interface.
type BatchServiceImpl struct {
	marketRepo   secondary.MarketRepository
	metadataRepo secondary.MetadataRepository
	batchRepo    secondary.BatchRepository
	itemRepo     secondary.ItemRepository
	normalize    normalize.Options
	metrics      *metrics.CampaignMetrics
	logger       *zap.Logger
}

// NewBatchService creates a new BatchService with injected dependencies.
func NewBatchService(
	marketRepo secondary.MarketRepository,
	metadataRepo secondary.MetadataRepository,
	batchRepo secondary.BatchRepository,
	itemRepo secondary.ItemRepository,
	opts normalize.Options,
	m *metrics.CampaignMetrics,
	logger *zap.Logger,
) *BatchServiceImpl {
	return &BatchServiceImpl{
		marketRepo:   marketRepo,
		metadataRepo: metadataRepo,
		batchRepo:    batchRepo,
		itemRepo:     itemRepo,
		normalize:    opts,
		metrics:      m,
		logger:       logging.OrNop(logger),
	}
}

// Ingest registers each batch, validates it, and stores its normalized
// items. Invalid batches are recorded as invalid and never normalized.
func (s *BatchServiceImpl) Ingest(ctx context.Context, req primary.IngestRequest) (*primary.IngestResult, error) {
	h, err := tasktype.Lookup(string(req.TaskType))
	if err != nil {
		return nil, err
	}

	result := &primary.IngestResult{}
	processed := 0
	for _, raw := range req.Batches {
		if req.MaxCount > 0 && processed >= req.MaxCount {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: skipped, --max-count %d reached", raw.FileName, req.MaxCount))
			continue
		}

		outcome, err := s.ingestOne(ctx, req, h, raw)
		if err != nil {
			return result, err
		}
		result.Batches = append(result.Batches, outcome)
		if outcome.Created && outcome.Status == secondary.BatchValidated {
			processed++
		}
		for _, reason := range outcome.DropReasons {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: dropped %s", outcome.FileName, reason))
		}
	}
	return result, nil
}

func (s *BatchServiceImpl) ingestOne(ctx context.Context, req primary.IngestRequest, h tasktype.Handler, raw batch.RawBatch) (*primary.BatchOutcome, error) {
	const op = "ingest batch"
	outcome := &primary.BatchOutcome{FileName: raw.FileName}

	refs, market, metadata, err := s.resolve(ctx, req.Manifest, h, raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrValidation, op, err)
	}
	report := validation.Validate(raw, h, refs)

	if market == nil {
		// Without a market the batch cannot be registered at all.
		outcome.Status = secondary.BatchInvalid
		outcome.Violations = violationStrings(report)
		s.metrics.RecordBatch(secondary.BatchInvalid)
		s.logger.Warn("batch rejected before registration", zap.String("file", raw.FileName), zap.Strings("violations", outcome.Violations))
		return outcome, nil
	}

	record := &secondary.BatchRecord{
		CampaignID: req.CampaignID,
		MarketID:   market.ID,
		FileName:   raw.FileName,
		Checksum:   raw.Checksum,
		CreatedBy:  req.CreatedBy,
	}
	if metadata != nil {
		record.MetadataID = metadata.ID
	}
	stored, created, err := s.batchRepo.GetOrCreate(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to register batch %s: %w", raw.FileName, err)
	}
	outcome.BatchID = stored.ID
	outcome.Created = created || stored.Status == secondary.BatchUploaded

	if !outcome.Created {
		outcome.Status = stored.Status
		outcome.Items = stored.ItemCount
		outcome.Dropped = stored.DroppedCount
		s.metrics.RecordBatch("reused")
		s.logger.Debug("batch already registered", zap.String("batch", stored.ID), zap.String("status", stored.Status))
		return outcome, nil
	}

	if !report.OK() {
		if err := s.batchRepo.SetStatus(ctx, stored.ID, secondary.BatchInvalid); err != nil {
			return nil, err
		}
		outcome.Status = secondary.BatchInvalid
		outcome.Violations = violationStrings(report)
		s.metrics.RecordBatch(secondary.BatchInvalid)
		s.logger.Warn("batch invalid", zap.String("batch", stored.ID), zap.Error(report.Err()))
		return outcome, nil
	}

	seq := normalize.New(raw, h, s.normalize)
	var items []*secondary.ItemRecord
	position := 0
	for item := range seq.All() {
		payload, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %s: %w", item.Key, err)
		}
		items = append(items, &secondary.ItemRecord{
			ItemKey:  item.Key,
			ItemType: item.ItemType,
			TaskType: string(h.Type()),
			Payload:  string(payload),
			Position: position,
		})
		position++
	}
	stats := seq.Stats()

	if _, err := s.itemRepo.InsertBatch(ctx, stored.ID, items); err != nil {
		return nil, err
	}
	if err := s.batchRepo.UpdateStatus(ctx, stored.ID, secondary.BatchValidated, stats.Produced, stats.Dropped); err != nil {
		return nil, err
	}

	outcome.Status = secondary.BatchValidated
	outcome.Items = stats.Produced
	outcome.Dropped = stats.Dropped
	outcome.DropReasons = stats.Reasons()
	s.metrics.RecordBatch(secondary.BatchValidated)
	s.metrics.RecordItems(stats.Produced, stats.Dropped)
	s.logger.Info("batch validated",
		zap.String("batch", stored.ID),
		zap.Int("items", stats.Produced),
		zap.Int("dropped", stats.Dropped),
	)
	return outcome, nil
}

// resolve looks up the batch's market and metadata, most recent version first.
func (s *BatchServiceImpl) resolve(ctx context.Context, mc *manifest.Context, h tasktype.Handler, raw batch.RawBatch) (validation.References, *secondary.MarketRecord, *secondary.MetadataRecord, error) {
	var refs validation.References
	if raw.SourceLanguage == "" || raw.TargetLanguage == "" {
		return refs, nil, nil, nil
	}
	if mc != nil {
		_, refs.PairDeclared = mc.Pair(raw.SourceLanguage, raw.TargetLanguage, raw.Domain)
	}

	market, err := s.marketRepo.FindLatest(ctx, raw.SourceLanguage, raw.TargetLanguage, raw.Domain)
	if errors.Is(err, errs.ErrNotFound) {
		return refs, nil, nil, nil
	}
	if err != nil {
		return refs, nil, nil, err
	}
	refs.MarketExists = true

	metadata, err := s.metadataRepo.FindLatest(ctx, market.ID, string(h.Type()))
	if errors.Is(err, errs.ErrNotFound) {
		return refs, market, nil, nil
	}
	if err != nil {
		return refs, nil, nil, err
	}
	refs.MetadataExists = true
	return refs, market, metadata, nil
}

func violationStrings(r validation.Report) []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.String()
	}
	return out
}

// Ensure BatchServiceImpl implements the interface.
var _ primary.BatchService = (*BatchServiceImpl)(nil)
