package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// ItemServiceImpl implements the ItemService interface.
type ItemServiceImpl struct {
	itemRepo    secondary.ItemRepository
	claimRepo   secondary.ClaimRepository
	findingRepo secondary.FindingRepository
	audit       *auditor
	log         *slog.Logger
}

// NewItemService creates a new ItemService with injected dependencies.
func NewItemService(
	itemRepo secondary.ItemRepository,
	claimRepo secondary.ClaimRepository,
	findingRepo secondary.FindingRepository,
	auditRepo secondary.AuditLogRepository,
	identity secondary.AgentIdentityProvider,
) *ItemServiceImpl {
	return &ItemServiceImpl{
		itemRepo:    itemRepo,
		claimRepo:   claimRepo,
		findingRepo: findingRepo,
		audit:       newAuditor(auditRepo, identity),
		log:         logging.New("items"),
	}
}

// EnqueueItem registers a new research item at stage 0.
func (s *ItemServiceImpl) EnqueueItem(ctx context.Context, req primary.EnqueueItemRequest) (*primary.EnqueueItemResponse, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("item title is required")
	}
	if req.PayloadRef == "" {
		return nil, fmt.Errorf("item payload reference is required")
	}

	nextID, err := s.itemRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate item ID: %w", err)
	}

	record := &secondary.ItemRecord{
		ID:         nextID,
		Title:      req.Title,
		PayloadRef: req.PayloadRef,
	}
	if err := s.itemRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to enqueue item: %w", err)
	}

	s.audit.record(ctx, "item", nextID, "create", req.Title)
	s.log.Info("item enqueued", "item", nextID, "title", req.Title)

	created, err := s.itemRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enqueued item: %w", err)
	}

	return &primary.EnqueueItemResponse{
		ItemID: created.ID,
		Item:   recordToItem(created),
	}, nil
}

// GetItem retrieves an item by ID.
func (s *ItemServiceImpl) GetItem(ctx context.Context, itemID string) (*primary.Item, error) {
	record, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return recordToItem(record), nil
}

// GetItemStatus retrieves an item with its verdict history and current
// stage activity.
func (s *ItemServiceImpl) GetItemStatus(ctx context.Context, itemID string) (*primary.ItemStatus, error) {
	record, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	history, err := s.itemRepo.GetHistory(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	claims, err := s.claimRepo.List(ctx, secondary.ClaimFilters{
		ItemID: itemID,
		Stage:  record.CurrentStage,
		Status: secondary.ClaimStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load claims: %w", err)
	}

	findingCount, err := s.findingRepo.CountByStage(ctx, itemID, record.CurrentStage)
	if err != nil {
		return nil, fmt.Errorf("failed to count findings: %w", err)
	}

	status := &primary.ItemStatus{
		Item:         recordToItem(record),
		FindingCount: findingCount,
	}
	for _, h := range history {
		status.History = append(status.History, &primary.StageVerdict{
			Stage:       h.Stage,
			StageName:   stage.Name(h.Stage),
			Verdict:     h.Verdict,
			RuleApplied: h.RuleApplied,
			Confidence:  h.Confidence,
			RecordedAt:  h.RecordedAt,
		})
	}
	for _, c := range claims {
		status.ActiveClaims = append(status.ActiveClaims, recordToClaim(c))
	}

	return status, nil
}

// ListItems lists items with optional filters.
func (s *ItemServiceImpl) ListItems(ctx context.Context, filters primary.ItemFilters) ([]*primary.Item, error) {
	records, err := s.itemRepo.List(ctx, secondary.ItemFilters{
		State: filters.State,
		Stage: filters.Stage,
		Limit: filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]*primary.Item, 0, len(records))
	for _, r := range records {
		items = append(items, recordToItem(r))
	}
	return items, nil
}

// recordToItem converts a persistence record to the port type.
func recordToItem(r *secondary.ItemRecord) *primary.Item {
	return &primary.Item{
		ID:           r.ID,
		Title:        r.Title,
		PayloadRef:   r.PayloadRef,
		CurrentStage: r.CurrentStage,
		StageName:    stage.Name(r.CurrentStage),
		State:        r.State,
		RejectReason: r.RejectReason,
		Attempt:      r.Attempt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// recordToClaim converts a persistence record to the port type.
func recordToClaim(r *secondary.ClaimRecord) *primary.Claim {
	return &primary.Claim{
		SlotToken:     r.Token,
		ItemID:        r.ItemID,
		Stage:         r.Stage,
		StageName:     stage.Name(r.Stage),
		Role:          r.Role,
		AgentID:       r.AgentID,
		Status:        r.Status,
		ClaimedAt:     r.ClaimedAt,
		LastHeartbeat: r.LastHeartbeat,
	}
}

// Ensure ItemServiceImpl implements the interface
var _ primary.ItemService = (*ItemServiceImpl)(nil)
