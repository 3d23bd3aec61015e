package primary

import "context"

// MonitorService defines the primary port for heartbeat supervision.
type MonitorService interface {
	// ExpireStale expires every active claim whose heartbeat is older
	// than the timeout, making those slots claimable again.
	ExpireStale(ctx context.Context) (*ExpireStaleResponse, error)

	// Watch runs ExpireStale on a fixed cadence until the context is
	// canceled.
	Watch(ctx context.Context) error
}

// ExpireStaleResponse contains the result of one expiry sweep.
type ExpireStaleResponse struct {
	Expired []*Claim
}

// AuditService defines the primary port for the audit trail.
type AuditService interface {
	// ListAudit lists audit entries with optional filters.
	ListAudit(ctx context.Context, filters AuditFilters) ([]*AuditEntry, error)

	// PruneAudit deletes audit entries older than the given number of
	// days and returns how many were removed.
	PruneAudit(ctx context.Context, days int) (int, error)
}

// AuditFilters contains filter options for listing audit entries.
type AuditFilters struct {
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
}

// AuditEntry represents an audit trail entry at the port boundary.
type AuditEntry struct {
	ID         int64
	Timestamp  string
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Detail     string
}
