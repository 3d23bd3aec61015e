package db

// SchemaSQL is the complete schema for fresh gauntlet installs.
//
// This is the single source of truth for the database schema. All tests
// build their in-memory databases from GetSchemaSQL(), so repository code
// that references a column missing here fails immediately with "no such
// column" instead of drifting silently.
const SchemaSQL = `
-- Research items moving through the review stages
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	payload_ref TEXT NOT NULL,
	current_stage INTEGER NOT NULL DEFAULT 0 CHECK(current_stage BETWEEN 0 AND 7),
	state TEXT NOT NULL CHECK(state IN ('active', 'approved', 'rejected')) DEFAULT 'active',
	reject_reason TEXT,
	attempt INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_state ON items(state);
CREATE INDEX IF NOT EXISTS idx_items_stage ON items(current_stage);

-- Ordered record of stage verdicts per item
CREATE TABLE IF NOT EXISTS stage_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	stage INTEGER NOT NULL,
	verdict TEXT NOT NULL CHECK(verdict IN ('validated', 'invalidated', 'uncertain')),
	rule_applied TEXT NOT NULL,
	confidence REAL NOT NULL,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_stage_history_item ON stage_history(item_id);

-- Validation slot claims held by agents
CREATE TABLE IF NOT EXISTS claims (
	token TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	stage INTEGER NOT NULL,
	role TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'expired', 'released')) DEFAULT 'active',
	claimed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_heartbeat DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

-- At most one active claim per slot; expired and released rows don't count
CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_active_slot
	ON claims(item_id, stage, role) WHERE status = 'active';

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_heartbeat ON claims(last_heartbeat) WHERE status = 'active';

-- Immutable agent findings, append-only
CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	stage INTEGER NOT NULL,
	role TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	verdict TEXT NOT NULL CHECK(verdict IN ('validated', 'invalidated', 'uncertain')),
	confidence REAL NOT NULL CHECK(confidence BETWEEN 0.0 AND 1.0),
	evidence TEXT NOT NULL DEFAULT '[]',
	parallel INTEGER NOT NULL DEFAULT 0,
	submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_item_stage ON findings(item_id, stage);

-- Consensus outcomes, one per stage attempt, kept for audit
CREATE TABLE IF NOT EXISTS consensus_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	stage INTEGER NOT NULL,
	verdict TEXT NOT NULL CHECK(verdict IN ('validated', 'invalidated', 'uncertain')),
	confidence REAL NOT NULL,
	rule_applied TEXT NOT NULL CHECK(rule_applied IN ('full', 'partial-weighted', 'minimum', 'deferred')),
	participating_roles TEXT NOT NULL DEFAULT '[]',
	elapsed_seconds REAL NOT NULL DEFAULT 0,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_consensus_item ON consensus_records(item_id);

-- Audit trail of every state-changing operation
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	if _, err := db.Exec(SchemaSQL); err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (1)")
	return err
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
