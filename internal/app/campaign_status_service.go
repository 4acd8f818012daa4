package app

import (
	"context"
	"errors"

	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// CampaignStatusServiceImpl implements the CampaignStatusService interface.
type CampaignStatusServiceImpl struct {
	campaignRepo secondary.CampaignRepository
	teamRepo     secondary.TeamRepository
	userRepo     secondary.UserRepository
	batchRepo    secondary.BatchRepository
	metadataRepo secondary.MetadataRepository
	agendaRepo   secondary.AgendaRepository
}

// StatusRepos groups the repositories campaign reporting reads.
type StatusRepos struct {
	Campaigns secondary.CampaignRepository
	Teams     secondary.TeamRepository
	Users     secondary.UserRepository
	Batches   secondary.BatchRepository
	Metadata  secondary.MetadataRepository
	Agenda    secondary.AgendaRepository
}

// NewCampaignStatusService creates a new CampaignStatusService.
func NewCampaignStatusService(repos StatusRepos) *CampaignStatusServiceImpl {
	return &CampaignStatusServiceImpl{
		campaignRepo: repos.Campaigns,
		teamRepo:     repos.Teams,
		userRepo:     repos.Users,
		batchRepo:    repos.Batches,
		metadataRepo: repos.Metadata,
		agendaRepo:   repos.Agenda,
	}
}

// CampaignStatus summarizes a campaign's batches and their staffing.
func (s *CampaignStatusServiceImpl) CampaignStatus(ctx context.Context, name string) (*primary.CampaignStatus, error) {
	campaign, err := s.campaignRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	status := &primary.CampaignStatus{
		CampaignID: campaign.ID,
		Name:       campaign.Name,
		Owner:      campaign.Owner,
		CampaignNo: campaign.CampaignNo,
	}

	team, err := s.teamRepo.GetByCampaign(ctx, campaign.ID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		members, err := s.userRepo.ListByTeam(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		status.Annotators = len(members)
	}

	batches, err := s.batchRepo.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]*secondary.MetadataRecord)
	for _, b := range batches {
		bs := &primary.BatchStatus{
			BatchID:  b.ID,
			FileName: b.FileName,
			Status:   b.Status,
			Items:    b.ItemCount,
			Dropped:  b.DroppedCount,
		}
		if b.MetadataID != "" {
			md, ok := metadata[b.MetadataID]
			if !ok {
				if md, err = s.metadataRepo.GetByID(ctx, b.MetadataID); err != nil {
					return nil, err
				}
				metadata[b.MetadataID] = md
			}
			bs.TaskType = md.TaskType
			bs.Quota = md.Quota

			cov, err := s.agendaRepo.CoverageByBatch(ctx, b.ID, md.Quota)
			if err != nil {
				return nil, err
			}
			bs.Assigned = cov.Assigned
			bs.Completed = cov.Completed
			bs.FullyStaffed = cov.FullyStaffed
		}
		status.Batches = append(status.Batches, bs)
	}
	return status, nil
}

// Ensure CampaignStatusServiceImpl implements the interface
var _ primary.CampaignStatusService = (*CampaignStatusServiceImpl)(nil)
