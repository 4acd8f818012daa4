package sqlite

import (
	"context"

	"github.com/example/appraise/internal/ctxutil"
	"github.com/example/appraise/internal/ports/secondary"
)

// LogWriterAdapter implements secondary.RunLogWriter using RunLogRepository.
type LogWriterAdapter struct {
	logRepo secondary.RunLogRepository
}

// NewLogWriterAdapter creates a new LogWriterAdapter.
func NewLogWriterAdapter(logRepo secondary.RunLogRepository) *LogWriterAdapter {
	return &LogWriterAdapter{logRepo: logRepo}
}

// LogCreate logs a create operation for an entity.
func (w *LogWriterAdapter) LogCreate(ctx context.Context, campaignID, entityType, entityID string) error {
	return w.writeLog(ctx, campaignID, entityType, entityID, "create", "")
}

// LogStatus logs a status change for an entity.
func (w *LogWriterAdapter) LogStatus(ctx context.Context, campaignID, entityType, entityID, status string) error {
	return w.writeLog(ctx, campaignID, entityType, entityID, "status", status)
}

func (w *LogWriterAdapter) writeLog(ctx context.Context, campaignID, entityType, entityID, action, detail string) error {
	runID := ctxutil.RunIDFromContext(ctx)
	if runID == "" {
		// Outside a pipeline run; nothing to attribute the change to.
		return nil
	}
	return w.logRepo.Append(ctx, &secondary.RunLogRecord{
		RunID:      runID,
		CampaignID: campaignID,
		ActorID:    ctxutil.ActorFromContext(ctx),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
	})
}

// Ensure LogWriterAdapter implements the interface
var _ secondary.RunLogWriter = (*LogWriterAdapter)(nil)
