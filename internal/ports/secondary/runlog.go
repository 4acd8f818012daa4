package secondary

import "context"

// RunLogRepository defines the secondary port for the run audit trail.
type RunLogRepository interface {
	// Append stores an entry, assigning its ID.
	Append(ctx context.Context, record *RunLogRecord) error

	// List retrieves entries matching the filters, newest first.
	List(ctx context.Context, filters RunLogFilters) ([]*RunLogRecord, error)
}

// RunLogRecord is one audited change made by a pipeline run.
type RunLogRecord struct {
	ID         string
	RunID      string
	CampaignID string
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Detail     string
	CreatedAt  string
}

// RunLogFilters narrows a run log listing.
type RunLogFilters struct {
	RunID      string
	CampaignID string
	EntityType string
	Limit      int
}

// RunLogWriter records entity changes for the run carried by ctx.
type RunLogWriter interface {
	// LogCreate records that an entity was created.
	LogCreate(ctx context.Context, campaignID, entityType, entityID string) error

	// LogStatus records an entity's new status.
	LogStatus(ctx context.Context, campaignID, entityType, entityID, status string) error
}
