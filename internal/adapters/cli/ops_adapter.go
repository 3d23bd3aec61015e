package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/gauntlet/internal/ports/primary"
)

// OpsAdapter is a thin adapter for operational commands: slot claims,
// stale-claim sweeps, and the audit trail.
type OpsAdapter struct {
	registry primary.RegistryService
	monitor  primary.MonitorService
	audit    primary.AuditService
	out      io.Writer
}

// NewOpsAdapter creates a new OpsAdapter with the given services.
func NewOpsAdapter(registry primary.RegistryService, monitor primary.MonitorService, audit primary.AuditService, out io.Writer) *OpsAdapter {
	return &OpsAdapter{
		registry: registry,
		monitor:  monitor,
		audit:    audit,
		out:      out,
	}
}

// ListClaims lists slot claims with optional filters.
func (a *OpsAdapter) ListClaims(ctx context.Context, itemID, status string) error {
	claims, err := a.registry.ListClaims(ctx, primary.ClaimFilters{
		ItemID: itemID,
		Stage:  -1,
		Status: status,
	})
	if err != nil {
		return fmt.Errorf("failed to list claims: %w", err)
	}

	if len(claims) == 0 {
		fmt.Fprintln(a.out, "No claims found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-20s %-14s %-22s %-9s %s\n",
		"ITEM", "STAGE", "ROLE", "AGENT", "STATUS", "HEARTBEAT")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────────────────────────────")
	for _, c := range claims {
		fmt.Fprintf(a.out, "%-10s %-20s %-14s %-22s %-9s %s\n",
			c.ItemID, fmt.Sprintf("%d/%s", c.Stage, c.StageName), c.Role, c.AgentID, c.Status, c.LastHeartbeat)
	}
	fmt.Fprintln(a.out)

	return nil
}

// ExpireStale sweeps claims whose heartbeat is past the timeout.
func (a *OpsAdapter) ExpireStale(ctx context.Context) error {
	resp, err := a.monitor.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire stale claims: %w", err)
	}

	if len(resp.Expired) == 0 {
		fmt.Fprintln(a.out, "No stale claims")
		return nil
	}

	for _, c := range resp.Expired {
		fmt.Fprintf(a.out, "✗ Expired %s slot on %s (%s, last heartbeat %s)\n",
			c.Role, c.ItemID, c.AgentID, c.LastHeartbeat)
	}
	fmt.Fprintf(a.out, "\n%d slot(s) reclaimed\n", len(resp.Expired))
	return nil
}

// ListAudit lists audit entries with optional filters.
func (a *OpsAdapter) ListAudit(ctx context.Context, filters primary.AuditFilters) error {
	entries, err := a.audit.ListAudit(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No audit entries found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-21s %-22s %-8s %-10s %s\n", "TIMESTAMP", "ACTOR", "ACTION", "ENTITY", "DETAIL")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────────────────────")
	for _, e := range entries {
		fmt.Fprintf(a.out, "%-21s %-22s %-8s %-10s %s\n",
			e.Timestamp, e.ActorID, e.Action, e.EntityID, e.Detail)
	}
	fmt.Fprintln(a.out)

	return nil
}

// PruneAudit deletes audit entries older than the given number of days.
func (a *OpsAdapter) PruneAudit(ctx context.Context, days int) error {
	removed, err := a.audit.PruneAudit(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to prune audit log: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Pruned %d audit entr(ies) older than %d days\n", removed, days)
	return nil
}
