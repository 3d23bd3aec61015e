package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/gauntlet/internal/ports/primary"
)

// PipelineAdapter is a thin adapter that translates CLI operations to
// PipelineService calls.
type PipelineAdapter struct {
	service primary.PipelineService
	out     io.Writer
}

// NewPipelineAdapter creates a new PipelineAdapter with the given service.
func NewPipelineAdapter(service primary.PipelineService, out io.Writer) *PipelineAdapter {
	return &PipelineAdapter{
		service: service,
		out:     out,
	}
}

// Advance evaluates the item's current stage and applies the transition.
func (a *PipelineAdapter) Advance(ctx context.Context, itemID string) error {
	resp, err := a.service.AdvanceItem(ctx, primary.AdvanceItemRequest{ItemID: itemID})
	if err != nil {
		return err
	}

	a.printOutcome(resp)
	return nil
}

// Run drives an item through consecutive stages to a terminal state.
func (a *PipelineAdapter) Run(ctx context.Context, itemID string) error {
	resp, err := a.service.RunItem(ctx, primary.RunItemRequest{ItemID: itemID})
	if err != nil {
		return err
	}

	for _, outcome := range resp.Outcomes {
		a.printOutcome(outcome)
	}
	fmt.Fprintf(a.out, "\n%s finished: %s at stage %d\n",
		resp.ItemID, stateMarker(resp.FinalState), resp.FinalStage)
	return nil
}

// RunQueue drives every active item through the pipeline.
func (a *PipelineAdapter) RunQueue(ctx context.Context, workers int) error {
	resp, err := a.service.RunQueue(ctx, primary.RunQueueRequest{Workers: workers})
	if err != nil {
		return err
	}

	if resp.Processed == 0 {
		fmt.Fprintln(a.out, "Queue is empty")
		return nil
	}

	for _, r := range resp.Results {
		fmt.Fprintf(a.out, "%-10s %-9s stage %d\n", r.ItemID, stateMarker(r.FinalState), r.FinalStage)
	}
	fmt.Fprintf(a.out, "\nProcessed %d: %d approved, %d rejected, %d deferred\n",
		resp.Processed, resp.Approved, resp.Rejected, resp.Deferred)
	return nil
}

// ForceClose terminally rejects an item with a mandatory reason.
func (a *PipelineAdapter) ForceClose(ctx context.Context, itemID, reason string) error {
	if err := a.service.ForceClose(ctx, primary.ForceCloseRequest{
		ItemID: itemID,
		Reason: reason,
	}); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Item %s force-closed: %s\n", itemID, reason)
	return nil
}

func (a *PipelineAdapter) printOutcome(resp *primary.AdvanceItemResponse) {
	retried := ""
	if resp.Retried {
		retried = " after retry"
	}
	fmt.Fprintf(a.out, "Stage %d (%s): %s %.2f via %s%s\n",
		resp.Stage, resp.StageName, verdictMarker(resp.Verdict), resp.Confidence, resp.RuleApplied, retried)
}
