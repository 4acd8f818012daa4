package primary

import "context"

// LogService defines the primary port for the run audit trail.
type LogService interface {
	// ListLogs retrieves log entries matching the given filters, newest first.
	ListLogs(ctx context.Context, filters LogFilters) ([]*LogEntry, error)
}

// LogEntry is one audited change at the port boundary.
type LogEntry struct {
	ID         string
	RunID      string
	CampaignID string
	ActorID    string
	EntityType string
	EntityID   string
	Action     string // 'create', 'status'
	Detail     string // new status, for status entries
	CreatedAt  string
}

// LogFilters contains filter options for querying logs.
type LogFilters struct {
	Campaign   string // campaign name
	RunID      string
	EntityType string
	Limit      int
}
