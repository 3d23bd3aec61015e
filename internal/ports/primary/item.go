// Package primary defines the primary ports (driving adapters) for the
// application. These are the interfaces through which the outside world
// drives the application.
package primary

import "context"

// ItemService defines the primary port for research item operations.
// Implementations live in the application layer, adapters in the CLI layer.
type ItemService interface {
	// EnqueueItem registers a new research item at stage 0.
	EnqueueItem(ctx context.Context, req EnqueueItemRequest) (*EnqueueItemResponse, error)

	// GetItem retrieves an item by ID.
	GetItem(ctx context.Context, itemID string) (*Item, error)

	// GetItemStatus retrieves an item together with its verdict history
	// and current stage activity.
	GetItemStatus(ctx context.Context, itemID string) (*ItemStatus, error)

	// ListItems lists items with optional filters.
	ListItems(ctx context.Context, filters ItemFilters) ([]*Item, error)
}

// EnqueueItemRequest contains parameters for enqueueing an item.
type EnqueueItemRequest struct {
	Title      string
	PayloadRef string
}

// EnqueueItemResponse contains the result of enqueueing an item.
type EnqueueItemResponse struct {
	ItemID string
	Item   *Item
}

// Item represents a research item at the port boundary.
type Item struct {
	ID           string
	Title        string
	PayloadRef   string
	CurrentStage int
	StageName    string
	State        string
	RejectReason string
	Attempt      int
	CreatedAt    string
	UpdatedAt    string
}

// ItemFilters contains filter options for listing items.
type ItemFilters struct {
	State string
	Stage int // -1 means any stage
	Limit int
}

// ItemStatus is an item with its stage history and live claim activity.
type ItemStatus struct {
	Item         *Item
	History      []*StageVerdict
	ActiveClaims []*Claim
	FindingCount int
}

// StageVerdict is one recorded stage outcome in an item's history.
type StageVerdict struct {
	Stage       int
	StageName   string
	Verdict     string
	RuleApplied string
	Confidence  float64
	RecordedAt  string
}
