// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import "context"

// UserRepository defines the secondary port for annotator accounts.
type UserRepository interface {
	// GetOrCreate returns the user with record.Username, creating it from
	// record when absent. created reports whether a row was inserted.
	GetOrCreate(ctx context.Context, record *UserRecord) (user *UserRecord, created bool, err error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*UserRecord, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)

	// ListByTeam retrieves team members ordered by username.
	ListByTeam(ctx context.Context, teamID string) ([]*UserRecord, error)

	// SetActive toggles whether the user may receive new work.
	SetActive(ctx context.Context, id string, active bool) error

	// UpdatePasswordHash replaces the stored login hash.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// UserRecord represents an annotator as stored in persistence.
type UserRecord struct {
	ID                 string
	Username           string
	PasswordHash       string
	SourceLanguage     string
	TargetLanguage     string
	Active             bool
	ReservedCampaignID string
	CreatedAt          string
}

// CampaignRepository defines the secondary port for campaign persistence.
type CampaignRepository interface {
	// GetOrCreate returns the campaign named record.Name, creating it when absent.
	GetOrCreate(ctx context.Context, record *CampaignRecord) (campaign *CampaignRecord, created bool, err error)

	// GetByID retrieves a campaign by ID.
	GetByID(ctx context.Context, id string) (*CampaignRecord, error)

	// GetByName retrieves a campaign by its unique name.
	GetByName(ctx context.Context, name string) (*CampaignRecord, error)

	// List retrieves all campaigns ordered by ID.
	List(ctx context.Context) ([]*CampaignRecord, error)
}

// CampaignRecord represents a campaign as stored in persistence.
type CampaignRecord struct {
	ID         string
	Name       string
	Owner      string
	CampaignNo int
	CreatedAt  string
}

// TeamRepository defines the secondary port for campaign teams.
type TeamRepository interface {
	// GetOrCreate returns the team named record.Name, creating it when absent.
	GetOrCreate(ctx context.Context, record *TeamRecord) (team *TeamRecord, created bool, err error)

	// AddMember adds a user to a team; added is false when already a member.
	AddMember(ctx context.Context, teamID, userID string) (added bool, err error)

	// AttachToCampaign links a team to a campaign (no-op when linked).
	AttachToCampaign(ctx context.Context, campaignID, teamID string) error

	// GetByCampaign retrieves the team linked to a campaign.
	GetByCampaign(ctx context.Context, campaignID string) (*TeamRecord, error)
}

// TeamRecord represents a team as stored in persistence.
type TeamRecord struct {
	ID        string
	Name      string
	Owner     string
	CreatedAt string
}

// MarketRepository defines the secondary port for markets.
type MarketRepository interface {
	// GetOrCreate returns the market matching the full natural key
	// (source, target, domain, version), creating it when absent.
	GetOrCreate(ctx context.Context, record *MarketRecord) (market *MarketRecord, created bool, err error)

	// GetByID retrieves a market by ID.
	GetByID(ctx context.Context, id string) (*MarketRecord, error)

	// FindLatest returns the highest-version market for the language pair.
	// An empty domain matches any domain.
	FindLatest(ctx context.Context, source, target, domain string) (*MarketRecord, error)
}

// MarketRecord represents a market as stored in persistence.
type MarketRecord struct {
	ID             string
	SourceLanguage string
	TargetLanguage string
	Domain         string
	Version        int
	CreatedAt      string
}

// MetadataRepository defines the secondary port for task metadata.
type MetadataRepository interface {
	// GetOrCreate returns the metadata matching (market, task type, corpus,
	// version), creating it when absent. An existing row is returned as-is,
	// even if its quota differs from record's.
	GetOrCreate(ctx context.Context, record *MetadataRecord) (metadata *MetadataRecord, created bool, err error)

	// GetByID retrieves metadata by ID.
	GetByID(ctx context.Context, id string) (*MetadataRecord, error)

	// FindLatest returns the highest-version metadata of a task type for a market.
	FindLatest(ctx context.Context, marketID, taskType string) (*MetadataRecord, error)
}

// MetadataRecord represents task metadata as stored in persistence.
type MetadataRecord struct {
	ID           string
	MarketID     string
	TaskType     string
	Corpus       string
	Version      int
	Quota        int
	Instructions string
	CreatedAt    string
}

// Batch statuses.
const (
	BatchUploaded  = "uploaded"
	BatchValidated = "validated"
	BatchInvalid   = "invalid"
	BatchStaffed   = "staffed"
)

// BatchRepository defines the secondary port for uploaded batches.
type BatchRepository interface {
	// GetOrCreate returns the campaign's batch with record.Checksum,
	// creating it when absent.
	GetOrCreate(ctx context.Context, record *BatchRecord) (batch *BatchRecord, created bool, err error)

	// GetByID retrieves a batch by ID.
	GetByID(ctx context.Context, id string) (*BatchRecord, error)

	// ListByCampaign retrieves a campaign's batches in creation order,
	// optionally restricted to the given statuses.
	ListByCampaign(ctx context.Context, campaignID string, statuses ...string) ([]*BatchRecord, error)

	// UpdateStatus records a status change along with item counts.
	UpdateStatus(ctx context.Context, id, status string, itemCount, droppedCount int) error

	// SetStatus changes only the status.
	SetStatus(ctx context.Context, id, status string) error
}

// BatchRecord represents a batch as stored in persistence.
type BatchRecord struct {
	ID           string
	CampaignID   string
	MarketID     string
	MetadataID   string
	FileName     string
	Checksum     string
	CreatedBy    string
	Status       string
	ItemCount    int
	DroppedCount int
	CreatedAt    string
}

// ItemRepository defines the secondary port for normalized items.
type ItemRepository interface {
	// InsertBatch stores items for a batch in one transaction. Items whose
	// key already exists in the batch are skipped.
	InsertBatch(ctx context.Context, batchID string, items []*ItemRecord) (inserted int, err error)

	// ListByBatch retrieves a batch's items in position order.
	ListByBatch(ctx context.Context, batchID string) ([]*ItemRecord, error)

	// CountByBatch returns the number of stored items of a batch.
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

// ItemRecord represents a normalized item as stored in persistence.
type ItemRecord struct {
	ID       string
	BatchID  string
	ItemKey  string
	ItemType string
	TaskType string
	Payload  string // JSON object of normalized fields
	Position int
}

// Agenda entry states.
const (
	EntryAssigned  = "assigned"
	EntryCompleted = "completed"
)

// AgendaRepository defines the secondary port for task agenda entries.
type AgendaRepository interface {
	// AssignIfUnderQuota inserts entry only if its item holds fewer than
	// quota entries and the (item, user) pair is new. The check and the
	// insert are one atomic statement.
	AssignIfUnderQuota(ctx context.Context, entry *AgendaEntryRecord, quota int) (bool, error)

	// ListByBatch retrieves all entries for a batch's items.
	ListByBatch(ctx context.Context, batchID string) ([]*AgendaEntryRecord, error)

	// LoadByCampaign counts entries per user in a campaign.
	LoadByCampaign(ctx context.Context, campaignID string) (map[string]int, error)

	// GetByID retrieves an entry with its item.
	GetByID(ctx context.Context, id string) (*AgendaTaskRecord, error)

	// NextAssigned returns the user's oldest open entry of a task type, or
	// nil when none remain.
	NextAssigned(ctx context.Context, userID, taskType string) (*AgendaTaskRecord, error)

	// Complete moves an assigned entry owned by userID to completed.
	// It returns false when no such open entry exists.
	Complete(ctx context.Context, c *CompletionRecord) (bool, error)

	// CountByItem counts entries of an item in any state.
	CountByItem(ctx context.Context, itemID string) (int, error)

	// CoverageByBatch summarizes staffing of a batch against quota.
	CoverageByBatch(ctx context.Context, batchID string, quota int) (*CoverageRecord, error)
}

// AgendaEntryRecord represents an agenda entry as stored in persistence.
type AgendaEntryRecord struct {
	ID          string
	CampaignID  string
	ItemID      string
	UserID      string
	TaskType    string
	State       string
	AssignedAt  string
	CompletedAt string
	Payload     string
	StartTS     string
	EndTS       string
}

// AgendaTaskRecord is an entry joined with its item.
type AgendaTaskRecord struct {
	AgendaEntryRecord
	ItemKey     string
	ItemType    string
	ItemPayload string
	BatchID     string
}

// CompletionRecord carries a submission to persist.
type CompletionRecord struct {
	EntryID     string
	UserID      string
	Payload     string
	StartTS     string
	EndTS       string
	CompletedAt string
}

// CoverageRecord summarizes a batch's staffing.
type CoverageRecord struct {
	Items        int
	Assigned     int
	Completed    int
	FullyStaffed int
}

// CredentialRepository defines the secondary port for issued credentials.
type CredentialRepository interface {
	// InsertIfAbsent stores record unless a credential exists for
	// (user, campaign); either way the stored credential is returned.
	InsertIfAbsent(ctx context.Context, record *CredentialRecord) (stored *CredentialRecord, created bool, err error)

	// Reset replaces the password of an existing credential.
	Reset(ctx context.Context, userID, campaignID, password string) error

	// Get retrieves the credential for (user, campaign).
	Get(ctx context.Context, userID, campaignID string) (*CredentialRecord, error)
}

// CredentialRecord represents an issued credential as stored in persistence.
type CredentialRecord struct {
	UserID     string
	CampaignID string
	Username   string
	Password   string
	CreatedAt  string
	ResetAt    string
}
