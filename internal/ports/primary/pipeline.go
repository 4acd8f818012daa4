package primary

import "context"

// PipelineService defines the primary port for running a campaign end to end.
type PipelineService interface {
	// StartCampaign runs every stage of campaign setup. Each stage commits
	// on its own, so a failed run can be repeated.
	StartCampaign(ctx context.Context, req StartCampaignRequest) (*RunSummary, error)
}

// StartCampaignRequest mirrors the start-campaign command line.
type StartCampaignRequest struct {
	ManifestPath       string
	TaskType           string
	BatchesPath        string
	CSVOutput          string
	XLSXOutput         string
	IncludeCompleted   bool
	ConfirmationTokens bool
	MaxCount           int
}

// RunSummary collects the outcome of every stage.
type RunSummary struct {
	RunID       string
	Campaign    *CampaignRef
	Ingest      *IngestResult
	Agenda      *AgendaResult
	Credentials []*IssuedCredential
	Exported    []string
	Warnings    []string
}
