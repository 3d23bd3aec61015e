package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/wire"
)

// ClaimsCmd returns the claims command
func ClaimsCmd() *cobra.Command {
	var itemID string
	var status string
	var stale bool

	cmd := &cobra.Command{
		Use:   "claims",
		Short: "List validation slot claims",
		Long: `List slot claims across the queue. With --stale, sweep claims whose
heartbeat is past the timeout and reclaim their slots instead.

Examples:
  gauntlet claims
  gauntlet claims --item ITEM-003 --status active
  gauntlet claims --stale`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if stale {
				return wire.OpsAdapter().ExpireStale(ctx)
			}
			return wire.OpsAdapter().ListClaims(ctx, itemID, status)
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "Filter by item ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, expired, released)")
	cmd.Flags().BoolVar(&stale, "stale", false, "Expire stale claims instead of listing")

	return cmd
}
