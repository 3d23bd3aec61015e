// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// all business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/gauntlet/internal/ports/primary"
)

// ItemAdapter is a thin adapter that translates CLI operations to
// ItemService calls. It depends only on the ItemService interface,
// enabling easy testing with mocks.
type ItemAdapter struct {
	service primary.ItemService
	out     io.Writer
}

// NewItemAdapter creates a new ItemAdapter with the given service.
func NewItemAdapter(service primary.ItemService, out io.Writer) *ItemAdapter {
	return &ItemAdapter{
		service: service,
		out:     out,
	}
}

// Enqueue registers a new research item at the intake stage.
func (a *ItemAdapter) Enqueue(ctx context.Context, title, payloadRef string) error {
	resp, err := a.service.EnqueueItem(ctx, primary.EnqueueItemRequest{
		Title:      title,
		PayloadRef: payloadRef,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Enqueued %s: %s\n", resp.ItemID, resp.Item.Title)
	fmt.Fprintf(a.out, "  Stage: %d (%s)\n", resp.Item.CurrentStage, resp.Item.StageName)
	return nil
}

// List lists items with optional state and stage filters.
func (a *ItemAdapter) List(ctx context.Context, state string, stage int) error {
	items, err := a.service.ListItems(ctx, primary.ItemFilters{
		State: state,
		Stage: stage,
	})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "No items found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-9s %-20s %s\n", "ID", "STATE", "STAGE", "TITLE")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────")
	for _, it := range items {
		fmt.Fprintf(a.out, "%-10s %-9s %-20s %s\n",
			it.ID, stateMarker(it.State), fmt.Sprintf("%d/%s", it.CurrentStage, it.StageName), it.Title)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Status displays an item with its verdict history and live stage activity.
func (a *ItemAdapter) Status(ctx context.Context, itemID string) error {
	status, err := a.service.GetItemStatus(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to get item status: %w", err)
	}

	it := status.Item
	fmt.Fprintf(a.out, "\nItem:    %s\n", it.ID)
	fmt.Fprintf(a.out, "Title:   %s\n", it.Title)
	fmt.Fprintf(a.out, "Payload: %s\n", it.PayloadRef)
	fmt.Fprintf(a.out, "State:   %s\n", stateMarker(it.State))
	fmt.Fprintf(a.out, "Stage:   %d (%s)\n", it.CurrentStage, it.StageName)
	if it.RejectReason != "" {
		fmt.Fprintf(a.out, "Reason:  %s\n", it.RejectReason)
	}
	if it.Attempt > 0 {
		fmt.Fprintf(a.out, "Attempt: %d\n", it.Attempt)
	}

	if len(status.History) > 0 {
		fmt.Fprintln(a.out, "\nStage history:")
		for _, v := range status.History {
			fmt.Fprintf(a.out, "  %d %-18s %-12s %.2f  (%s)\n",
				v.Stage, v.StageName, verdictMarker(v.Verdict), v.Confidence, v.RuleApplied)
		}
	}

	if len(status.ActiveClaims) > 0 {
		fmt.Fprintln(a.out, "\nActive slots:")
		for _, c := range status.ActiveClaims {
			fmt.Fprintf(a.out, "  %-14s %s (heartbeat %s)\n", c.Role, c.AgentID, c.LastHeartbeat)
		}
	}
	if status.FindingCount > 0 {
		fmt.Fprintf(a.out, "\nFindings at current stage: %d\n", status.FindingCount)
	}
	fmt.Fprintln(a.out)

	return nil
}

// stateMarker renders an item state with its conventional color.
func stateMarker(state string) string {
	switch state {
	case "approved":
		return color.New(color.FgHiGreen).Sprint(state)
	case "rejected":
		return color.New(color.FgRed).Sprint(state)
	default:
		return state
	}
}

// verdictMarker renders a stage verdict with its conventional color.
func verdictMarker(verdict string) string {
	switch verdict {
	case "validated":
		return color.New(color.FgHiGreen).Sprint(verdict)
	case "invalidated":
		return color.New(color.FgRed).Sprint(verdict)
	case "uncertain":
		return color.New(color.FgYellow).Sprint(verdict)
	default:
		return verdict
	}
}
