package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/appraise/internal/core/agenda"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// AgendaServiceImpl implements the AgendaService interface.
type AgendaServiceImpl struct {
	teamRepo     secondary.TeamRepository
	userRepo     secondary.UserRepository
	marketRepo   secondary.MarketRepository
	metadataRepo secondary.MetadataRepository
	batchRepo    secondary.BatchRepository
	itemRepo     secondary.ItemRepository
	agendaRepo   secondary.AgendaRepository
	workers      int
	metrics      *metrics.CampaignMetrics
	logger       *zap.Logger
}

// AgendaRepos groups the repositories the agenda builder reads and writes.
type AgendaRepos struct {
	Teams    secondary.TeamRepository
	Users    secondary.UserRepository
	Markets  secondary.MarketRepository
	Metadata secondary.MetadataRepository
	Batches  secondary.BatchRepository
	Items    secondary.ItemRepository
	Agenda   secondary.AgendaRepository
}

// NewAgendaService creates a new AgendaService. workers bounds how many
// markets are staffed concurrently.
func NewAgendaService(repos AgendaRepos, workers int, m *metrics.CampaignMetrics, logger *zap.Logger) *AgendaServiceImpl {
	if workers < 1 {
		workers = 1
	}
	return &AgendaServiceImpl{
		teamRepo:     repos.Teams,
		userRepo:     repos.Users,
		marketRepo:   repos.Markets,
		metadataRepo: repos.Metadata,
		batchRepo:    repos.Batches,
		itemRepo:     repos.Items,
		agendaRepo:   repos.Agenda,
		workers:      workers,
		metrics:      m,
		logger:       logging.OrNop(logger),
	}
}

// BuildForCampaign staffs every validated batch of the campaign (and staffed
// ones when IncludeCompleted is set). Batches of one market are staffed in
// order so load balancing stays deterministic; markets run concurrently.
func (s *AgendaServiceImpl) BuildForCampaign(ctx context.Context, req primary.BuildAgendaRequest) (*primary.AgendaResult, error) {
	h, err := tasktype.Lookup(string(req.TaskType))
	if err != nil {
		return nil, err
	}

	statuses := []string{secondary.BatchValidated}
	if req.IncludeCompleted {
		statuses = append(statuses, secondary.BatchStaffed)
	}
	batches, err := s.batchRepo.ListByCampaign(ctx, req.CampaignID, statuses...)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return &primary.AgendaResult{}, nil
	}

	team, err := s.teamRepo.GetByCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	members, err := s.userRepo.ListByTeam(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	var marketOrder []string
	byMarket := make(map[string][]int)
	for i, b := range batches {
		if _, ok := byMarket[b.MarketID]; !ok {
			marketOrder = append(marketOrder, b.MarketID)
		}
		byMarket[b.MarketID] = append(byMarket[b.MarketID], i)
	}

	results := make([]*primary.BatchAgenda, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, marketID := range marketOrder {
		indexes := byMarket[marketID]
		g.Go(func() error {
			market, err := s.marketRepo.GetByID(gctx, marketID)
			if err != nil {
				return err
			}
			pool := poolFor(members, market)
			for _, i := range indexes {
				res, err := s.staffBatch(gctx, req, h, batches[i], pool)
				if err != nil {
					return fmt.Errorf("batch %s: %w", batches[i].ID, err)
				}
				results[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &primary.AgendaResult{}
	for _, r := range results {
		if r != nil {
			out.Batches = append(out.Batches, r)
		}
	}
	return out, nil
}

// poolFor keeps the team members working on the market's language pair.
func poolFor(members []*secondary.UserRecord, market *secondary.MarketRecord) []agenda.Annotator {
	var pool []agenda.Annotator
	for _, u := range members {
		if u.SourceLanguage != market.SourceLanguage || u.TargetLanguage != market.TargetLanguage {
			continue
		}
		pool = append(pool, agenda.Annotator{
			UserID:             u.ID,
			Username:           u.Username,
			Active:             u.Active,
			ReservedCampaignID: u.ReservedCampaignID,
		})
	}
	return pool
}

func (s *AgendaServiceImpl) staffBatch(ctx context.Context, req primary.BuildAgendaRequest, h tasktype.Handler, b *secondary.BatchRecord, pool []agenda.Annotator) (*primary.BatchAgenda, error) {
	if b.MetadataID == "" {
		return nil, nil
	}
	metadata, err := s.metadataRepo.GetByID(ctx, b.MetadataID)
	if err != nil {
		return nil, err
	}
	if metadata.TaskType != string(h.Type()) {
		return nil, nil
	}

	items, err := s.itemRepo.ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	entries, err := s.agendaRepo.ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	load, err := s.agendaRepo.LoadByCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}

	in := agenda.PlanInput{
		CampaignID:    req.CampaignID,
		Items:         make([]agenda.ItemRef, len(items)),
		Pool:          pool,
		Existing:      make([]agenda.ExistingEntry, len(entries)),
		Load:          load,
		Quota:         metadata.Quota,
		OnlyActivated: !req.IncludeCompleted,
	}
	for i, it := range items {
		in.Items[i] = agenda.ItemRef{ItemID: it.ID}
	}
	for i, e := range entries {
		in.Existing[i] = agenda.ExistingEntry{ItemID: e.ItemID, UserID: e.UserID, Completed: e.State == secondary.EntryCompleted}
	}
	plan := agenda.GeneratePlan(in)

	res := &primary.BatchAgenda{
		BatchID:          b.ID,
		Pool:             plan.EligiblePool,
		Planned:          len(plan.Assignments),
		AtQuota:          plan.AtQuota,
		SkippedCompleted: plan.SkippedCompleted,
		MissingSlots:     plan.MissingSlots(),
	}
	for _, a := range plan.Assignments {
		ok, err := s.agendaRepo.AssignIfUnderQuota(ctx, &secondary.AgendaEntryRecord{
			CampaignID: req.CampaignID,
			ItemID:     a.ItemID,
			UserID:     a.UserID,
			TaskType:   metadata.TaskType,
		}, metadata.Quota)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Assigned++
		} else {
			res.Rejected++
		}
	}

	keys := make(map[string]string, len(items))
	for _, it := range items {
		keys[it.ID] = it.ItemKey
	}
	for _, w := range plan.Shortfalls {
		w.ItemID = keys[w.ItemID]
		res.Shortfalls = append(res.Shortfalls, fmt.Sprintf("%s: %s", b.FileName, w))
	}

	if len(plan.Shortfalls) == 0 && res.Rejected == 0 && len(items) > 0 {
		if err := s.batchRepo.SetStatus(ctx, b.ID, secondary.BatchStaffed); err != nil {
			return nil, err
		}
		res.Staffed = true
	}

	s.metrics.RecordAgenda(b.ID, metadata.TaskType, res.Assigned, res.Rejected, res.MissingSlots)
	s.logger.Info("batch staffed",
		zap.String("batch", b.ID),
		zap.Int("pool", res.Pool),
		zap.Int("assigned", res.Assigned),
		zap.Int("rejected", res.Rejected),
		zap.Int("missing_slots", res.MissingSlots),
	)
	return res, nil
}

// Ensure AgendaServiceImpl implements the interface.
var _ primary.AgendaService = (*AgendaServiceImpl)(nil)
