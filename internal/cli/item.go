package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gauntlet/internal/wire"
)

// EnqueueCmd returns the enqueue command
func EnqueueCmd() *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "enqueue [title]",
		Short: "Enqueue a research item for review",
		Long: `Enqueue a research item at the intake stage of the review pipeline.

Examples:
  gauntlet enqueue "Anomalous thrust measurements" --payload papers/thrust-2026.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload == "" {
				return fmt.Errorf("must specify --payload")
			}
			return wire.ItemAdapter().Enqueue(context.Background(), args[0], payload)
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "Reference to the item payload (required)")

	return cmd
}

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [item-id]",
		Short: "Show an item's state, stage history, and live slots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if len(args) == 1 {
				return wire.ItemAdapter().Status(ctx, args[0])
			}
			// No item given: show the whole active queue.
			return wire.ItemAdapter().List(ctx, "active", -1)
		},
	}
}

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	var state string
	var stageNum int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ItemAdapter().List(context.Background(), state, stageNum)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (active, approved, rejected)")
	cmd.Flags().IntVar(&stageNum, "stage", -1, "Filter by stage ordinal")

	return cmd
}
