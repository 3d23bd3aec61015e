package primary

import "context"

// PipelineService defines the primary port for moving items through the
// review stages.
type PipelineService interface {
	// AdvanceItem evaluates the item's current stage to a decisive end
	// and applies the resulting transition. Blocks until the stage
	// concludes or the absolute timeout fires.
	AdvanceItem(ctx context.Context, req AdvanceItemRequest) (*AdvanceItemResponse, error)

	// RunItem drives an item through consecutive stages until it reaches
	// a terminal state or a stage defers.
	RunItem(ctx context.Context, req RunItemRequest) (*RunItemResponse, error)

	// RunQueue drives every active item through the pipeline using a
	// bounded worker pool.
	RunQueue(ctx context.Context, req RunQueueRequest) (*RunQueueResponse, error)

	// ForceClose terminally rejects an item regardless of stage, with a
	// mandatory reason.
	ForceClose(ctx context.Context, req ForceCloseRequest) error
}

// AdvanceItemRequest contains parameters for advancing an item one stage.
type AdvanceItemRequest struct {
	ItemID string
}

// AdvanceItemResponse contains the result of one stage evaluation.
type AdvanceItemResponse struct {
	ItemID      string
	Stage       int
	StageName   string
	Verdict     string
	Confidence  float64
	RuleApplied string
	State       string // item state after the transition
	NextStage   int
	Retried     bool // a non-decisive round consumed a retry before this outcome
}

// RunItemRequest contains parameters for running one item to completion.
type RunItemRequest struct {
	ItemID string
}

// RunItemResponse contains the result of running one item.
type RunItemResponse struct {
	ItemID     string
	FinalState string
	FinalStage int
	Outcomes   []*AdvanceItemResponse
}

// RunQueueRequest contains parameters for running the whole queue.
type RunQueueRequest struct {
	Workers int // concurrent items, defaults to 1
}

// RunQueueResponse contains the result of a queue run.
type RunQueueResponse struct {
	Processed int
	Approved  int
	Rejected  int
	Deferred  int
	Results   []*RunItemResponse
}

// ForceCloseRequest contains parameters for force-closing an item.
type ForceCloseRequest struct {
	ItemID string
	Reason string
}
