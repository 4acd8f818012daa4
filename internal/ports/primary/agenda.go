package primary

import (
	"context"

	"github.com/example/appraise/internal/core/tasktype"
)

// AgendaService defines the primary port for agenda building.
type AgendaService interface {
	// BuildForCampaign staffs every eligible batch of the campaign.
	BuildForCampaign(ctx context.Context, req BuildAgendaRequest) (*AgendaResult, error)
}

// BuildAgendaRequest selects the campaign and policy.
type BuildAgendaRequest struct {
	CampaignID       string
	TaskType         tasktype.Type
	IncludeCompleted bool
}

// AgendaResult aggregates per-batch outcomes.
type AgendaResult struct {
	Batches []*BatchAgenda
}

// Assigned sums new entries over all batches.
func (r *AgendaResult) Assigned() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Assigned
	}
	return n
}

// Warnings lists every shortfall.
func (r *AgendaResult) Warnings() []string {
	var out []string
	for _, b := range r.Batches {
		out = append(out, b.Shortfalls...)
	}
	return out
}

// BatchAgenda is the outcome of staffing one batch.
type BatchAgenda struct {
	BatchID          string
	Pool             int
	Planned          int
	Assigned         int
	Rejected         int
	AtQuota          int
	SkippedCompleted int
	MissingSlots     int
	Shortfalls       []string
	Staffed          bool
}
