package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/appraise/internal/core/credential"
	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// unusablePassword is stored for annotators until credentials are issued;
// no bcrypt comparison can succeed against it.
const unusablePassword = "!"

// RegistryServiceImpl implements the RegistryService interface.
type RegistryServiceImpl struct {
	campaignRepo secondary.CampaignRepository
	teamRepo     secondary.TeamRepository
	userRepo     secondary.UserRepository
	marketRepo   secondary.MarketRepository
	metadataRepo secondary.MetadataRepository
	agenda       primary.AgendaService
	logger       *zap.Logger
}

// NewRegistryService creates a new RegistryService with injected dependencies.
func NewRegistryService(
	campaignRepo secondary.CampaignRepository,
	teamRepo secondary.TeamRepository,
	userRepo secondary.UserRepository,
	marketRepo secondary.MarketRepository,
	metadataRepo secondary.MetadataRepository,
	agenda primary.AgendaService,
	logger *zap.Logger,
) *RegistryServiceImpl {
	return &RegistryServiceImpl{
		campaignRepo: campaignRepo,
		teamRepo:     teamRepo,
		userRepo:     userRepo,
		marketRepo:   marketRepo,
		metadataRepo: metadataRepo,
		agenda:       agenda,
		logger:       logging.OrNop(logger),
	}
}

// InitCampaign gets or creates every registry entity the manifest declares.
// Running it twice with the same manifest creates nothing the second time.
func (s *RegistryServiceImpl) InitCampaign(ctx context.Context, mc *manifest.Context, opts primary.InitOptions) (*primary.CampaignRef, error) {
	const op = "init campaign"
	ref := &primary.CampaignRef{Counts: make(map[string]primary.Tally)}
	count := func(kind string, created bool) {
		t := ref.Counts[kind]
		if created {
			t.Created++
		} else {
			t.Reused++
		}
		ref.Counts[kind] = t
	}

	campaign, created, err := s.campaignRepo.GetOrCreate(ctx, &secondary.CampaignRecord{
		Name:       mc.CampaignName(),
		Owner:      mc.Owner(),
		CampaignNo: mc.CampaignNo(),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrRegistry, op, err)
	}
	if !created && (campaign.Owner != mc.Owner() || campaign.CampaignNo != mc.CampaignNo()) {
		return nil, errs.New(errs.ErrRegistry, op,
			"campaign %q already exists with owner %q and number %d (manifest: %q, %d)",
			campaign.Name, campaign.Owner, campaign.CampaignNo, mc.Owner(), mc.CampaignNo())
	}
	count("campaign", created)
	ref.CampaignID = campaign.ID
	ref.Name = campaign.Name
	ref.Owner = campaign.Owner
	ref.CampaignNo = campaign.CampaignNo

	team, created, err := s.teamRepo.GetOrCreate(ctx, &secondary.TeamRecord{Name: campaign.Name, Owner: campaign.Owner})
	if err != nil {
		return nil, errs.Wrap(errs.ErrRegistry, op, err)
	}
	count("team", created)
	ref.TeamID = team.ID
	if err := s.teamRepo.AttachToCampaign(ctx, campaign.ID, team.ID); err != nil {
		return nil, errs.Wrap(errs.ErrRegistry, op, err)
	}

	// Usernames only carry source and target, so pairs that differ by
	// domain share one index sequence.
	nextIndex := make(map[string]int)
	for _, pair := range mc.LanguagePairs() {
		market, created, err := s.marketRepo.GetOrCreate(ctx, &secondary.MarketRecord{
			SourceLanguage: pair.Source,
			TargetLanguage: pair.Target,
			Domain:         pair.Domain,
			Version:        pair.MarketVersion,
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrRegistry, op, err)
		}
		count("market", created)

		for _, task := range mc.Tasks() {
			metadata, created, err := s.metadataRepo.GetOrCreate(ctx, &secondary.MetadataRecord{
				MarketID:     market.ID,
				TaskType:     string(task.Type),
				Corpus:       task.Corpus,
				Version:      task.Version,
				Quota:        task.Quota,
				Instructions: task.Instructions,
			})
			if err != nil {
				return nil, errs.Wrap(errs.ErrRegistry, op, err)
			}
			if !created && metadata.Quota != task.Quota {
				return nil, errs.New(errs.ErrRegistry, op,
					"%s metadata for %s already exists with quota %d (manifest: %d)",
					task.Type, pair.Key(), metadata.Quota, task.Quota)
			}
			count("metadata", created)
		}

		langs := pair.Source + "-" + pair.Target
		first := nextIndex[langs] + 1
		nextIndex[langs] += pair.Annotators
		for i := first; i < first+pair.Annotators; i++ {
			username := credential.Username(pair.Source, pair.Target, campaign.CampaignNo, i)
			user, created, err := s.userRepo.GetOrCreate(ctx, &secondary.UserRecord{
				Username:           username,
				PasswordHash:       unusablePassword,
				SourceLanguage:     pair.Source,
				TargetLanguage:     pair.Target,
				Active:             true,
				ReservedCampaignID: campaign.ID,
			})
			if err != nil {
				return nil, errs.Wrap(errs.ErrRegistry, op, err)
			}
			if !created && (user.SourceLanguage != pair.Source || user.TargetLanguage != pair.Target) {
				return nil, errs.New(errs.ErrRegistry, op,
					"user %s exists for %s-%s", username, user.SourceLanguage, user.TargetLanguage)
			}
			if user.ReservedCampaignID != "" && user.ReservedCampaignID != campaign.ID {
				return nil, errs.New(errs.ErrRegistry, op,
					"user %s is reserved for campaign %s (campaign_no %d already in use)",
					username, user.ReservedCampaignID, campaign.CampaignNo)
			}
			count("user", created)
			if _, err := s.teamRepo.AddMember(ctx, team.ID, user.ID); err != nil {
				return nil, errs.Wrap(errs.ErrRegistry, op, err)
			}
			ref.Annotators = append(ref.Annotators, toAnnotator(user))
		}
	}

	s.logger.Info("registry pass complete",
		zap.String("campaign", campaign.Name),
		zap.Stringer("mode", opts.Mode),
		zap.Any("counts", ref.Counts),
	)

	if opts.Mode == primary.BuildAgendas {
		result, err := s.agenda.BuildForCampaign(ctx, primary.BuildAgendaRequest{
			CampaignID:       campaign.ID,
			TaskType:         opts.TaskType,
			IncludeCompleted: opts.IncludeCompleted,
		})
		if err != nil {
			return nil, err
		}
		ref.Agenda = result
	}

	return ref, nil
}

// Ensure RegistryServiceImpl implements the interface.
var _ primary.RegistryService = (*RegistryServiceImpl)(nil)
