package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/ctxutil"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// PipelineDeps groups the services and adapters start-campaign drives.
type PipelineDeps struct {
	Registry    primary.RegistryService
	Batches     primary.BatchService
	Credentials primary.CredentialService
	Source      secondary.BatchSource
	CSV         secondary.CredentialSink
	XLSX        secondary.CredentialSink
	RunLog      secondary.RunLogWriter
}

// PipelineServiceImpl implements the PipelineService interface.
type PipelineServiceImpl struct {
	deps   PipelineDeps
	logger *zap.Logger
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(deps PipelineDeps, logger *zap.Logger) *PipelineServiceImpl {
	return &PipelineServiceImpl{deps: deps, logger: logging.OrNop(logger)}
}

// StartCampaign loads the manifest, registers the campaign, ingests batches,
// builds agendas, issues credentials and exports them. Every stage commits
// on its own; rerunning after a failure resumes where the last run stopped.
func (s *PipelineServiceImpl) StartCampaign(ctx context.Context, req primary.StartCampaignRequest) (*primary.RunSummary, error) {
	const op = "start campaign"

	if err := checkSuffix(req.CSVOutput, ".csv"); err != nil {
		return nil, err
	}
	if err := checkSuffix(req.XLSXOutput, ".xlsx"); err != nil {
		return nil, err
	}
	h, err := tasktype.Lookup(req.TaskType)
	if err != nil {
		return nil, err
	}
	mc, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	if _, ok := mc.Task(h.Type()); !ok {
		return nil, errs.New(errs.ErrManifest, op, "manifest declares no %s task", h.Type())
	}
	if req.ConfirmationTokens {
		if err := s.deps.Credentials.TokensAvailable(); err != nil {
			return nil, err
		}
	}

	summary := &primary.RunSummary{RunID: uuid.NewString()}
	ctx = ctxutil.WithRunID(ctx, summary.RunID)
	if ctxutil.ActorFromContext(ctx) == "" {
		ctx = ctxutil.WithActorID(ctx, mc.Owner())
	}
	logger := s.logger.With(zap.String("run", summary.RunID), zap.String("campaign", mc.CampaignName()))
	logger.Info("run started", zap.String("task_type", string(h.Type())))

	// Pass 1 makes sure markets and metadata exist before batches refer to them.
	ref, err := s.deps.Registry.InitCampaign(ctx, mc, primary.InitOptions{
		Mode:             primary.SkipAgendas,
		TaskType:         h.Type(),
		IncludeCompleted: req.IncludeCompleted,
	})
	if err != nil {
		return summary, err
	}
	summary.Campaign = ref
	if ref.Counts["campaign"].Created > 0 {
		s.audit(logger, func() error {
			return s.deps.RunLog.LogCreate(ctx, ref.CampaignID, "campaign", ref.CampaignID)
		})
	}

	var raws []batch.RawBatch
	if req.BatchesPath != "" {
		if raws, err = s.deps.Source.ReadBatches(ctx, req.BatchesPath); err != nil {
			return summary, err
		}
	}
	ingest, err := s.deps.Batches.Ingest(ctx, primary.IngestRequest{
		CampaignID: ref.CampaignID,
		Manifest:   mc,
		TaskType:   h.Type(),
		Batches:    raws,
		CreatedBy:  ctxutil.ActorFromContext(ctx),
		MaxCount:   req.MaxCount,
	})
	if ingest != nil {
		summary.Ingest = ingest
		summary.Warnings = append(summary.Warnings, ingest.Warnings...)
		for _, b := range ingest.Batches {
			if b.BatchID == "" || !b.Created {
				continue
			}
			s.audit(logger, func() error {
				return s.deps.RunLog.LogStatus(ctx, ref.CampaignID, "batch", b.BatchID, b.Status)
			})
		}
	}
	if err != nil {
		return summary, err
	}

	ref, err = s.deps.Registry.InitCampaign(ctx, mc, primary.InitOptions{
		Mode:             primary.BuildAgendas,
		TaskType:         h.Type(),
		IncludeCompleted: req.IncludeCompleted,
	})
	if err != nil {
		return summary, err
	}
	summary.Campaign = ref
	if ref.Agenda != nil {
		summary.Agenda = ref.Agenda
		summary.Warnings = append(summary.Warnings, ref.Agenda.Warnings()...)
		for _, b := range ref.Agenda.Batches {
			if !b.Staffed {
				continue
			}
			s.audit(logger, func() error {
				return s.deps.RunLog.LogStatus(ctx, ref.CampaignID, "batch", b.BatchID, secondary.BatchStaffed)
			})
		}
	}

	creds, err := s.deps.Credentials.Issue(ctx, primary.IssueRequest{
		CampaignID: ref.CampaignID,
		TaskType:   h.Type(),
		WantTokens: req.ConfirmationTokens,
	})
	if err != nil {
		return summary, err
	}
	summary.Credentials = creds
	for _, c := range creds {
		if !c.Created {
			continue
		}
		s.audit(logger, func() error {
			return s.deps.RunLog.LogCreate(ctx, ref.CampaignID, "credential", c.UserID)
		})
	}

	rows := make([]secondary.CredentialRow, len(creds))
	for i, c := range creds {
		rows[i] = secondary.CredentialRow{Username: c.Username, Password: c.Password, Token: c.Token}
	}
	for _, out := range []struct {
		path string
		sink secondary.CredentialSink
	}{
		{req.CSVOutput, s.deps.CSV},
		{req.XLSXOutput, s.deps.XLSX},
	} {
		if out.path == "" {
			continue
		}
		if err := out.sink.Write(ctx, out.path, rows, req.ConfirmationTokens); err != nil {
			return summary, errs.Wrap(errs.ErrIssuer, "export", err)
		}
		summary.Exported = append(summary.Exported, out.path)
	}

	logger.Info("run finished",
		zap.Int("batches", len(summary.Ingest.Batches)),
		zap.Int("credentials", len(creds)),
		zap.Int("warnings", len(summary.Warnings)),
	)
	return summary, nil
}

// audit records a run log entry. The audit trail never fails a run.
func (s *PipelineServiceImpl) audit(logger *zap.Logger, write func() error) {
	if s.deps.RunLog == nil {
		return
	}
	if err := write(); err != nil {
		logger.Warn("run log write failed", zap.Error(err))
	}
}

func checkSuffix(path, suffix string) error {
	if path == "" {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(path), suffix) {
		return errs.New(errs.ErrIssuer, "export", "output %q must end in %s", path, suffix)
	}
	return nil
}

// Ensure PipelineServiceImpl implements the interface
var _ primary.PipelineService = (*PipelineServiceImpl)(nil)
