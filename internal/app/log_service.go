package app

import (
	"context"
	"fmt"

	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// LogServiceImpl implements the LogService interface.
type LogServiceImpl struct {
	logRepo      secondary.RunLogRepository
	campaignRepo secondary.CampaignRepository
}

// NewLogService creates a new LogService with injected dependencies.
func NewLogService(logRepo secondary.RunLogRepository, campaignRepo secondary.CampaignRepository) *LogServiceImpl {
	return &LogServiceImpl{
		logRepo:      logRepo,
		campaignRepo: campaignRepo,
	}
}

// ListLogs retrieves log entries matching the given filters.
func (s *LogServiceImpl) ListLogs(ctx context.Context, filters primary.LogFilters) ([]*primary.LogEntry, error) {
	repoFilters := secondary.RunLogFilters{
		RunID:      filters.RunID,
		EntityType: filters.EntityType,
		Limit:      filters.Limit,
	}
	if filters.Campaign != "" {
		campaign, err := s.campaignRepo.GetByName(ctx, filters.Campaign)
		if err != nil {
			return nil, err
		}
		repoFilters.CampaignID = campaign.ID
	}

	records, err := s.logRepo.List(ctx, repoFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	entries := make([]*primary.LogEntry, len(records))
	for i, r := range records {
		entries[i] = recordToLogEntry(r)
	}
	return entries, nil
}

func recordToLogEntry(r *secondary.RunLogRecord) *primary.LogEntry {
	return &primary.LogEntry{
		ID:         r.ID,
		RunID:      r.RunID,
		CampaignID: r.CampaignID,
		ActorID:    r.ActorID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     r.Action,
		Detail:     r.Detail,
		CreatedAt:  r.CreatedAt,
	}
}

// Ensure LogServiceImpl implements the interface
var _ primary.LogService = (*LogServiceImpl)(nil)
