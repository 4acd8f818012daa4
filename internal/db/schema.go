package db

// schemaV1 creates the campaign ledger.
const schemaV1 = `
-- Annotators (login accounts)
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	reserved_campaign_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Campaigns
CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	campaign_no INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Teams (one per campaign, named after it)
CREATE TABLE IF NOT EXISTS teams (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS team_members (
	team_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (team_id, user_id),
	FOREIGN KEY (team_id) REFERENCES teams(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS campaign_teams (
	campaign_id TEXT NOT NULL,
	team_id TEXT NOT NULL,
	PRIMARY KEY (campaign_id, team_id),
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id),
	FOREIGN KEY (team_id) REFERENCES teams(id)
);

-- Markets (language pair + domain, versioned)
CREATE TABLE IF NOT EXISTS markets (
	id TEXT PRIMARY KEY,
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	domain TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(source_language, target_language, domain, version)
);

-- Metadata (task configuration bound to a market)
CREATE TABLE IF NOT EXISTS metadata (
	id TEXT PRIMARY KEY,
	market_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	corpus TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	quota INTEGER NOT NULL CHECK(quota >= 1),
	instructions TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (market_id) REFERENCES markets(id),
	UNIQUE(market_id, task_type, corpus, version)
);

-- Batches (uploaded data files)
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	market_id TEXT NOT NULL,
	metadata_id TEXT,
	file_name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	created_by TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('uploaded', 'validated', 'invalid', 'staffed')) DEFAULT 'uploaded',
	item_count INTEGER NOT NULL DEFAULT 0,
	dropped_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id),
	FOREIGN KEY (market_id) REFERENCES markets(id),
	FOREIGN KEY (metadata_id) REFERENCES metadata(id),
	UNIQUE(campaign_id, checksum)
);

-- Items (normalized units of work)
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	item_key TEXT NOT NULL,
	item_type TEXT NOT NULL DEFAULT 'TGT',
	task_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	position INTEGER NOT NULL,
	FOREIGN KEY (batch_id) REFERENCES batches(id),
	UNIQUE(batch_id, item_key)
);

-- Agenda entries (one item assigned to one annotator)
CREATE TABLE IF NOT EXISTS agenda_entries (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	state TEXT NOT NULL CHECK(state IN ('assigned', 'completed')) DEFAULT 'assigned',
	assigned_at TEXT NOT NULL,
	completed_at TEXT,
	payload TEXT,
	start_ts TEXT,
	end_ts TEXT,
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id),
	FOREIGN KEY (item_id) REFERENCES items(id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	UNIQUE(item_id, user_id)
);

-- Credentials (exported login data per campaign)
CREATE TABLE IF NOT EXISTS credentials (
	user_id TEXT NOT NULL,
	campaign_id TEXT NOT NULL,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	reset_at DATETIME,
	PRIMARY KEY (user_id, campaign_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
);
`

// indexesV2 speeds up agenda lookups.
const indexesV2 = `
CREATE INDEX IF NOT EXISTS idx_agenda_entries_item ON agenda_entries(item_id, state);
CREATE INDEX IF NOT EXISTS idx_agenda_entries_user ON agenda_entries(user_id, task_type, state);
CREATE INDEX IF NOT EXISTS idx_items_batch ON items(batch_id, position);
CREATE INDEX IF NOT EXISTS idx_batches_campaign ON batches(campaign_id, status);
`

// runLogV3 records what each start-campaign run touched.
const runLogV3 = `
CREATE TABLE IF NOT EXISTS run_logs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	campaign_id TEXT,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	detail TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_run_logs_campaign ON run_logs(campaign_id, created_at);
`

// SchemaSQL is the complete schema after all migrations.
//
// This is the single source of truth: tests load it through GetSchemaSQL
// instead of hand-written CREATE TABLE statements, so repository code that
// drifts from the schema fails with "no such column" at test time.
const SchemaSQL = schemaV1 + indexesV2 + runLogV3

// GetSchemaSQL returns the authoritative schema.
func GetSchemaSQL() string {
	return SchemaSQL
}
