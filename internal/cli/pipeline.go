package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/wire"
)

// AdvanceCmd returns the advance command
func AdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance [item-id]",
		Short: "Evaluate an item's current stage and apply the transition",
		Long: `Run the item's current stage to a decisive consensus and move the
item accordingly. Blocks until the stage concludes or its absolute
timeout fires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return wire.PipelineAdapter().Advance(ctx, args[0])
		},
	}
}

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "run [item-id]",
		Short: "Run items through the full pipeline",
		Long: `Run one item, or the whole active queue, through the review stages
until each item reaches a terminal state. A heartbeat monitor runs
alongside so abandoned slots are reclaimed during the run.

Examples:
  gauntlet run ITEM-003
  gauntlet run --workers 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Reclaim abandoned slots while stages are in flight.
			watchCtx, stopWatch := context.WithCancel(ctx)
			defer stopWatch()
			go func() {
				_ = wire.MonitorService().Watch(watchCtx)
			}()

			if len(args) == 1 {
				return wire.PipelineAdapter().Run(ctx, args[0])
			}

			if !cmd.Flags().Changed("workers") && wire.Config().Workers > 0 {
				workers = wire.Config().Workers
			}
			return wire.PipelineAdapter().RunQueue(ctx, workers)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent items when running the queue")

	return cmd
}

// ForceCloseCmd returns the force-close command
func ForceCloseCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "force-close [item-id]",
		Short: "Terminally reject an item regardless of stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("must specify --reason")
			}
			return wire.PipelineAdapter().ForceClose(context.Background(), args[0], reason)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the item is being closed (required)")

	return cmd
}
