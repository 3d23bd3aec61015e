package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/wire"
)

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	var actor string
	var limit int
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "audit [item-id]",
		Short: "Inspect the audit trail",
		Long: `List audit entries, newest first. With an item ID, show only that
item's trail. With --prune-days, delete entries older than the cutoff.

Examples:
  gauntlet audit
  gauntlet audit ITEM-003
  gauntlet audit --actor AGENT-units-01 --limit 20
  gauntlet audit --prune-days 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if pruneDays > 0 {
				return wire.OpsAdapter().PruneAudit(ctx, pruneDays)
			}

			filters := primary.AuditFilters{ActorID: actor, Limit: limit}
			if len(args) == 1 {
				filters.EntityID = args[0]
			}
			return wire.OpsAdapter().ListAudit(ctx, filters)
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Filter by actor ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete entries older than this many days")

	// Guard against accidental pruning combined with filters.
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if pruneDays > 0 && (actor != "" || len(args) > 0) {
			return fmt.Errorf("--prune-days cannot be combined with filters")
		}
		return nil
	}

	return cmd
}
