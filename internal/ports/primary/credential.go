package primary

import (
	"context"

	"github.com/example/appraise/internal/core/tasktype"
)

// CredentialService defines the primary port for login credentials.
type CredentialService interface {
	// Issue returns a credential for every team member of the campaign,
	// generating passwords only for members that have none yet.
	Issue(ctx context.Context, req IssueRequest) ([]*IssuedCredential, error)

	// Reset regenerates one annotator's password for a campaign.
	Reset(ctx context.Context, username, campaignName string) (*IssuedCredential, error)

	// VerifyToken checks a confirmation token without any stored state.
	VerifyToken(token, username, campaignName string, taskType tasktype.Type) (bool, error)

	// TokensAvailable returns an issuer error when no signing key is configured.
	TokensAvailable() error
}

// IssueRequest selects the campaign and whether tokens are wanted.
type IssueRequest struct {
	CampaignID string
	TaskType   tasktype.Type
	WantTokens bool
}

// IssuedCredential is one exported login.
type IssuedCredential struct {
	UserID   string
	Username string
	Password string
	Token    string
	Created  bool
}
