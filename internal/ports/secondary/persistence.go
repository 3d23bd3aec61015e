// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application
// drives external systems.
package secondary

import "context"

// Claim status values.
const (
	ClaimStatusActive   = "active"
	ClaimStatusExpired  = "expired"
	ClaimStatusReleased = "released"
)

// ItemRepository defines the secondary port for research item persistence.
type ItemRepository interface {
	// Create persists a new item at stage 0.
	Create(ctx context.Context, item *ItemRecord) error

	// GetByID retrieves an item by its ID.
	GetByID(ctx context.Context, id string) (*ItemRecord, error)

	// List retrieves items matching the given filters.
	List(ctx context.Context, filters ItemFilters) ([]*ItemRecord, error)

	// GetNextID returns the next available item ID.
	GetNextID(ctx context.Context) (string, error)

	// AdvanceStage atomically moves an item from fromStage to toStage.
	// Returns false when the item is not active at fromStage (the
	// compare-and-swap failed); the caller treats that as an invalid
	// transition, never as success.
	AdvanceStage(ctx context.Context, id string, fromStage, toStage int) (bool, error)

	// MarkTerminal atomically moves an active item at fromStage into a
	// terminal state with a reason code. Same CAS semantics as AdvanceStage.
	MarkTerminal(ctx context.Context, id string, fromStage int, state, reason string) (bool, error)

	// SetAttempt records the attempt counter for the item's current stage.
	SetAttempt(ctx context.Context, id string, attempt int) error

	// AppendHistory appends one stage verdict to the item's ordered history.
	AppendHistory(ctx context.Context, entry *StageHistoryRecord) error

	// GetHistory retrieves the item's stage verdicts in recorded order.
	GetHistory(ctx context.Context, itemID string) ([]*StageHistoryRecord, error)
}

// ItemRecord represents a research item as stored in persistence.
type ItemRecord struct {
	ID           string
	Title        string
	PayloadRef   string // opaque reference to the document/simulation bundle
	CurrentStage int    // 0..7
	State        string // active, approved, rejected
	RejectReason string // empty string means null
	Attempt      int    // attempts made at the current stage
	CreatedAt    string
	UpdatedAt    string
}

// ItemFilters contains filter options for querying items.
type ItemFilters struct {
	State string
	Stage int // -1 means any stage
	Limit int
}

// StageHistoryRecord is one entry of an item's ordered verdict history.
type StageHistoryRecord struct {
	ID          int64
	ItemID      string
	Stage       int
	Verdict     string
	RuleApplied string
	Confidence  float64
	RecordedAt  string
}

// ClaimRepository defines the secondary port for slot claim persistence.
// The one-active-claim-per-(item,stage,role) invariant is enforced here,
// at the store, so it holds across processes.
type ClaimRepository interface {
	// Insert creates an active claim if and only if no active claim
	// exists for the (item, stage, role). Returns granted=false otherwise.
	Insert(ctx context.Context, claim *ClaimRecord) (granted bool, err error)

	// GetByToken retrieves a claim by its slot token.
	GetByToken(ctx context.Context, token string) (*ClaimRecord, error)

	// Heartbeat renews an active claim's liveness timestamp. Returns
	// false when the claim is no longer active.
	Heartbeat(ctx context.Context, token, now string) (bool, error)

	// Release moves an active claim to released. Idempotent: releasing a
	// non-active claim reports false without error.
	Release(ctx context.Context, token string) (bool, error)

	// Expire moves an active claim to expired, conditional on the
	// liveness timestamp still matching the observed one (so a heartbeat
	// racing the monitor wins).
	Expire(ctx context.Context, token, observedHeartbeat string) (bool, error)

	// ListStale retrieves active claims whose last heartbeat is strictly
	// older than the cutoff.
	ListStale(ctx context.Context, cutoff string) ([]*ClaimRecord, error)

	// ActiveRoles retrieves the roles currently held for an item/stage.
	ActiveRoles(ctx context.Context, itemID string, stage int) ([]string, error)

	// List retrieves claims matching the given filters.
	List(ctx context.Context, filters ClaimFilters) ([]*ClaimRecord, error)
}

// ClaimRecord represents a slot claim as stored in persistence.
type ClaimRecord struct {
	Token         string // slot token, primary key
	ItemID        string
	Stage         int
	Role          string
	AgentID       string
	Status        string // active, expired, released
	ClaimedAt     string
	LastHeartbeat string
}

// ClaimFilters contains filter options for querying claims.
type ClaimFilters struct {
	ItemID string
	Stage  int // -1 means any stage
	Status string
	Limit  int
}

// FindingRepository defines the secondary port for finding persistence.
// Findings are immutable and append-only: no Update or Delete operations.
type FindingRepository interface {
	// Append persists a new finding.
	Append(ctx context.Context, finding *FindingRecord) error

	// ListByStage retrieves all findings for an item/stage in arrival order.
	ListByStage(ctx context.Context, itemID string, stage int) ([]*FindingRecord, error)

	// CountByStage returns the number of findings for an item/stage.
	CountByStage(ctx context.Context, itemID string, stage int) (int, error)
}

// FindingRecord represents a finding as stored in persistence.
type FindingRecord struct {
	ID         string
	ItemID     string
	Stage      int
	Role       string
	AgentID    string
	Verdict    string // validated, invalidated, uncertain
	Confidence float64
	Evidence   []string
	Parallel   bool // submitted without holding the primary claim
	SubmittedAt string
}

// ConsensusRepository defines the secondary port for consensus record
// persistence. Records are computed once per stage attempt and kept for
// audit; no Update or Delete operations.
type ConsensusRepository interface {
	// Record persists a consensus record.
	Record(ctx context.Context, record *ConsensusRecord) error

	// GetLatest retrieves the most recent consensus record for an
	// item/stage, or nil when none exists.
	GetLatest(ctx context.Context, itemID string, stage int) (*ConsensusRecord, error)

	// ListByItem retrieves all consensus records for an item in recorded order.
	ListByItem(ctx context.Context, itemID string) ([]*ConsensusRecord, error)
}

// ConsensusRecord represents a stage consensus outcome as stored in
// persistence.
type ConsensusRecord struct {
	ID                 int64
	ItemID             string
	Stage              int
	Verdict            string
	Confidence         float64
	RuleApplied        string // full, partial-weighted, minimum, deferred
	ParticipatingRoles []string
	ElapsedSeconds     float64
	RecordedAt         string
}

// AuditLogRepository defines the secondary port for the audit trail.
// Entries are immutable - no Update operations, but old entries can be
// pruned.
type AuditLogRepository interface {
	// Append persists a new audit entry.
	Append(ctx context.Context, entry *AuditRecord) error

	// List retrieves audit entries matching the given filters.
	List(ctx context.Context, filters AuditFilters) ([]*AuditRecord, error)

	// PruneOlderThan deletes entries older than the given number of days.
	// Returns the number of deleted entries.
	PruneOlderThan(ctx context.Context, days int) (int, error)
}

// AuditRecord represents an audit trail entry as stored in persistence.
type AuditRecord struct {
	ID         int64
	Timestamp  string
	ActorID    string // empty string means null
	EntityType string // item, claim, finding, consensus
	EntityID   string
	Action     string // create, advance, reject, claim, heartbeat, expire, release, submit, record, force_close
	Detail     string // empty string means null
}

// AuditFilters contains filter options for querying the audit trail.
type AuditFilters struct {
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
}

// AgentIdentityProvider defines the secondary port for actor identity
// resolution. This abstracts detection of the current actor (operator vs
// autonomous agent).
type AgentIdentityProvider interface {
	// GetCurrentIdentity returns the identity of the current actor.
	GetCurrentIdentity(ctx context.Context) (*AgentIdentity, error)
}

// AgentIdentity represents an actor's identity as provided by the
// secondary port.
type AgentIdentity struct {
	Type   AgentType
	ID     string // "OPERATOR" for the operator, worker name for agents
	FullID string // Complete ID like "OPERATOR" or "AGENT-units-01"
}

// AgentType represents the type of actor.
type AgentType string

const (
	// AgentTypeOperator represents the human or scripted operator.
	AgentTypeOperator AgentType = "OPERATOR"
	// AgentTypeAgent represents an autonomous validation worker.
	AgentTypeAgent AgentType = "AGENT"
)
