package app

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/appraise/internal/core/credential"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// CredentialRepos groups the repositories the credential issuer needs.
type CredentialRepos struct {
	Campaigns   secondary.CampaignRepository
	Teams       secondary.TeamRepository
	Users       secondary.UserRepository
	Credentials secondary.CredentialRepository
}

// CredentialOptions configures password and token generation.
type CredentialOptions struct {
	// Secret keys confirmation tokens. Empty disables tokens.
	Secret string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Random feeds password generation; crypto/rand when nil.
	Random io.Reader
}

// CredentialServiceImpl implements the CredentialService interface.
type CredentialServiceImpl struct {
	campaignRepo   secondary.CampaignRepository
	teamRepo       secondary.TeamRepository
	userRepo       secondary.UserRepository
	credentialRepo secondary.CredentialRepository
	signer         *credential.Signer
	signerErr      error
	cost           int
	random         io.Reader
	metrics        *metrics.CampaignMetrics
	logger         *zap.Logger
}

// NewCredentialService creates a new CredentialService. A missing or short
// secret is not an error here; it surfaces when tokens are requested.
func NewCredentialService(repos CredentialRepos, opts CredentialOptions, m *metrics.CampaignMetrics, logger *zap.Logger) *CredentialServiceImpl {
	signer, signerErr := credential.NewSigner(opts.Secret)
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CredentialServiceImpl{
		campaignRepo:   repos.Campaigns,
		teamRepo:       repos.Teams,
		userRepo:       repos.Users,
		credentialRepo: repos.Credentials,
		signer:         signer,
		signerErr:      signerErr,
		cost:           cost,
		random:         opts.Random,
		metrics:        m,
		logger:         logging.OrNop(logger),
	}
}

// Signer returns the token signer, or nil when tokens are disabled.
func (s *CredentialServiceImpl) Signer() *credential.Signer {
	return s.signer
}

// TokensAvailable returns an issuer error when no signing key is configured.
func (s *CredentialServiceImpl) TokensAvailable() error {
	return s.signerErr
}

// Issue returns one credential per team member. Passwords are generated
// only for members without a stored credential, so reruns hand out the
// same passwords.
func (s *CredentialServiceImpl) Issue(ctx context.Context, req primary.IssueRequest) ([]*primary.IssuedCredential, error) {
	const op = "issue credentials"
	if req.WantTokens && s.signerErr != nil {
		return nil, s.signerErr
	}

	campaign, err := s.campaignRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}
	team, err := s.teamRepo.GetByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}
	members, err := s.userRepo.ListByTeam(ctx, team.ID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}

	issued := make([]*primary.IssuedCredential, 0, len(members))
	for _, member := range members {
		password, err := credential.GeneratePassword(s.random)
		if err != nil {
			return nil, errs.Wrap(errs.ErrIssuer, op, err)
		}
		stored, created, err := s.credentialRepo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
			UserID:     member.ID,
			CampaignID: campaign.ID,
			Username:   member.Username,
			Password:   password,
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrIssuer, op, err)
		}
		if created || member.PasswordHash == unusablePassword {
			if err := s.storeHash(ctx, member.ID, stored.Password); err != nil {
				return nil, errs.Wrap(errs.ErrIssuer, op, err)
			}
		}

		out := &primary.IssuedCredential{
			UserID:   member.ID,
			Username: member.Username,
			Password: stored.Password,
			Created:  created,
		}
		if req.WantTokens {
			out.Token = s.signer.Token(member.Username, campaign.Name, string(req.TaskType))
		}
		issued = append(issued, out)

		kind := "reused"
		if created {
			kind = "created"
		}
		s.metrics.RecordCredential(kind)
	}

	s.logger.Info("credentials issued",
		zap.String("campaign", campaign.Name),
		zap.Int("count", len(issued)),
		zap.Bool("tokens", req.WantTokens),
	)
	return issued, nil
}

// Reset regenerates one annotator's password for a campaign.
func (s *CredentialServiceImpl) Reset(ctx context.Context, username, campaignName string) (*primary.IssuedCredential, error) {
	const op = "reset credential"
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	campaign, err := s.campaignRepo.GetByName(ctx, campaignName)
	if err != nil {
		return nil, err
	}
	password, err := credential.GeneratePassword(s.random)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}

	created := false
	err = s.credentialRepo.Reset(ctx, user.ID, campaign.ID, password)
	if errors.Is(err, errs.ErrNotFound) {
		_, created, err = s.credentialRepo.InsertIfAbsent(ctx, &secondary.CredentialRecord{
			UserID:     user.ID,
			CampaignID: campaign.ID,
			Username:   user.Username,
			Password:   password,
		})
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}
	if err := s.storeHash(ctx, user.ID, password); err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, op, err)
	}
	s.metrics.RecordCredential("reset")
	s.logger.Info("credential reset", zap.String("username", user.Username), zap.String("campaign", campaign.Name))

	return &primary.IssuedCredential{
		UserID:   user.ID,
		Username: user.Username,
		Password: password,
		Created:  created,
	}, nil
}

// VerifyToken checks a confirmation token against the signing key.
func (s *CredentialServiceImpl) VerifyToken(token, username, campaignName string, taskType tasktype.Type) (bool, error) {
	if s.signerErr != nil {
		return false, s.signerErr
	}
	return s.signer.Verify(token, username, campaignName, string(taskType)), nil
}

func (s *CredentialServiceImpl) storeHash(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePasswordHash(ctx, userID, string(hash))
}

// Ensure CredentialServiceImpl implements the interface
var _ primary.CredentialService = (*CredentialServiceImpl)(nil)
