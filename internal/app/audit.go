// Package app contains the application services behind the primary ports.
package app

import (
	"context"
	"log/slog"

	"github.com/example/gauntlet/internal/ctxutil"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// auditor records state-changing operations in the audit trail. The actor
// comes from the context when a caller set one, otherwise from the
// identity provider (environment detection).
type auditor struct {
	repo     secondary.AuditLogRepository
	identity secondary.AgentIdentityProvider
	log      *slog.Logger
}

func newAuditor(repo secondary.AuditLogRepository, identity secondary.AgentIdentityProvider) *auditor {
	return &auditor{repo: repo, identity: identity, log: logging.New("audit")}
}

// record appends one audit entry. Audit failures are logged, never
// surfaced: an unavailable trail must not block the pipeline.
func (a *auditor) record(ctx context.Context, entityType, entityID, action, detail string) {
	if a == nil || a.repo == nil {
		return
	}

	actorID := ctxutil.ActorFromContext(ctx)
	if actorID == "" && a.identity != nil {
		if id, err := a.identity.GetCurrentIdentity(ctx); err == nil {
			actorID = id.FullID
		}
	}

	err := a.repo.Append(ctx, &secondary.AuditRecord{
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
	})
	if err != nil {
		a.log.Warn("failed to append audit entry",
			"entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}

// AuditServiceImpl implements the AuditService interface.
type AuditServiceImpl struct {
	repo secondary.AuditLogRepository
}

// NewAuditService creates a new AuditService with injected dependencies.
func NewAuditService(repo secondary.AuditLogRepository) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo}
}

// ListAudit lists audit entries with optional filters.
func (s *AuditServiceImpl) ListAudit(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	records, err := s.repo.List(ctx, secondary.AuditFilters{
		EntityType: filters.EntityType,
		EntityID:   filters.EntityID,
		ActorID:    filters.ActorID,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*primary.AuditEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, &primary.AuditEntry{
			ID:         r.ID,
			Timestamp:  r.Timestamp,
			ActorID:    r.ActorID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			Detail:     r.Detail,
		})
	}

	return entries, nil
}

// PruneAudit deletes audit entries older than the given number of days.
func (s *AuditServiceImpl) PruneAudit(ctx context.Context, days int) (int, error) {
	return s.repo.PruneOlderThan(ctx, days)
}

// Ensure AuditServiceImpl implements the interface
var _ primary.AuditService = (*AuditServiceImpl)(nil)
