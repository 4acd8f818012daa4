package primary

import (
	"context"

	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/core/tasktype"
)

// RegistryMode selects whether a registry pass also builds agendas.
type RegistryMode int

const (
	// SkipAgendas creates or reuses registry entities only.
	SkipAgendas RegistryMode = iota
	// BuildAgendas additionally runs the agenda builder for validated batches.
	BuildAgendas
)

func (m RegistryMode) String() string {
	if m == BuildAgendas {
		return "build-agendas"
	}
	return "skip-agendas"
}

// RegistryService defines the primary port for campaign initialization.
type RegistryService interface {
	// InitCampaign gets or creates the campaign, its team, annotators,
	// markets and metadata declared by the manifest.
	InitCampaign(ctx context.Context, mc *manifest.Context, opts InitOptions) (*CampaignRef, error)
}

// InitOptions controls a registry pass.
type InitOptions struct {
	Mode     RegistryMode
	TaskType tasktype.Type
	// IncludeCompleted widens agenda building to inactive annotators and
	// lets items holding completed work be topped up.
	IncludeCompleted bool
}

// OnlyActivated reports the default agenda policy.
func (o InitOptions) OnlyActivated() bool {
	return !o.IncludeCompleted
}

// Tally counts created and reused entities of one kind.
type Tally struct {
	Created int
	Reused  int
}

// CampaignRef is the outcome of a registry pass.
type CampaignRef struct {
	CampaignID string
	Name       string
	Owner      string
	CampaignNo int
	TeamID     string
	Annotators []*Annotator
	// Counts is keyed by entity kind: campaign, team, user, market, metadata.
	Counts map[string]Tally
	// Agenda is set in BuildAgendas mode.
	Agenda *AgendaResult
}

// Annotator is a campaign team member at the port boundary.
type Annotator struct {
	UserID         string
	Username       string
	SourceLanguage string
	TargetLanguage string
	Active         bool
}

// CampaignStatusService defines the primary port for campaign reporting.
type CampaignStatusService interface {
	// CampaignStatus summarizes batches and staffing of a campaign.
	CampaignStatus(ctx context.Context, name string) (*CampaignStatus, error)
}

// CampaignStatus summarizes a campaign.
type CampaignStatus struct {
	CampaignID string
	Name       string
	Owner      string
	CampaignNo int
	Annotators int
	Batches    []*BatchStatus
}

// BatchStatus reports one batch's progress.
type BatchStatus struct {
	BatchID      string
	FileName     string
	Status       string
	TaskType     string
	Quota        int
	Items        int
	Dropped      int
	Assigned     int
	Completed    int
	FullyStaffed int
}
