package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

func TestItemService_EnqueueItem(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()

	resp, err := h.items.EnqueueItem(ctx, primary.EnqueueItemRequest{
		Title:      "Anomalous thrust measurements",
		PayloadRef: "papers/thrust-2026.pdf",
	})
	if err != nil {
		t.Fatalf("EnqueueItem failed: %v", err)
	}

	if resp.ItemID != "ITEM-001" {
		t.Errorf("expected ITEM-001, got %s", resp.ItemID)
	}
	if resp.Item.CurrentStage != 0 || resp.Item.State != "active" {
		t.Errorf("new item must start active at stage 0, got %d/%s", resp.Item.CurrentStage, resp.Item.State)
	}
	if resp.Item.StageName != "intake-screen" {
		t.Errorf("expected intake-screen, got %s", resp.Item.StageName)
	}

	// IDs are sequential
	second, err := h.items.EnqueueItem(ctx, primary.EnqueueItemRequest{
		Title:      "Cold fusion replication",
		PayloadRef: "papers/cf-repl.pdf",
	})
	if err != nil {
		t.Fatalf("second EnqueueItem failed: %v", err)
	}
	if second.ItemID != "ITEM-002" {
		t.Errorf("expected ITEM-002, got %s", second.ItemID)
	}

	if got := h.auditRepo.actions("item"); !cmp.Equal(got, []string{"create", "create"}) {
		t.Errorf("unexpected audit actions: %v", got)
	}
}

func TestItemService_EnqueueItem_Validation(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()

	if _, err := h.items.EnqueueItem(ctx, primary.EnqueueItemRequest{PayloadRef: "papers/x.pdf"}); err == nil {
		t.Error("expected missing title to be rejected")
	}
	if _, err := h.items.EnqueueItem(ctx, primary.EnqueueItemRequest{Title: "No payload"}); err == nil {
		t.Error("expected missing payload ref to be rejected")
	}
}

func TestItemService_GetItem_NotFound(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())

	_, err := h.items.GetItem(context.Background(), "ITEM-404")
	if !errors.Is(err, secondary.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItemService_GetItemStatus(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()
	h.seedActiveItem("ITEM-001", 2)

	if err := h.itemRepo.AppendHistory(ctx, &secondary.StageHistoryRecord{
		ItemID: "ITEM-001", Stage: 0, Verdict: "validated", RuleApplied: "full", Confidence: 0.91,
	}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}
	if err := h.itemRepo.AppendHistory(ctx, &secondary.StageHistoryRecord{
		ItemID: "ITEM-001", Stage: 1, Verdict: "validated", RuleApplied: "partial-weighted", Confidence: 0.74,
	}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	// One live claim on the current stage, one finding already in.
	if _, err := h.registry.ClaimSlot(ctx, primary.ClaimSlotRequest{
		ItemID: "ITEM-001", Role: "statistics", AgentID: "AGENT-statistics-01",
	}); err != nil {
		t.Fatalf("ClaimSlot failed: %v", err)
	}
	if err := h.findingRepo.Append(ctx, &secondary.FindingRecord{
		ID: "FIND-seed", ItemID: "ITEM-001", Stage: 2, Role: "literature",
		AgentID: "AGENT-literature-01", Verdict: "validated", Confidence: 0.8,
	}); err != nil {
		t.Fatalf("Append finding failed: %v", err)
	}

	status, err := h.items.GetItemStatus(ctx, "ITEM-001")
	if err != nil {
		t.Fatalf("GetItemStatus failed: %v", err)
	}

	if status.Item.StageName != "claims-audit" {
		t.Errorf("expected claims-audit, got %s", status.Item.StageName)
	}
	if len(status.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(status.History))
	}
	if status.History[0].StageName != "intake-screen" || status.History[1].RuleApplied != "partial-weighted" {
		t.Errorf("unexpected history: %+v %+v", status.History[0], status.History[1])
	}
	if len(status.ActiveClaims) != 1 || status.ActiveClaims[0].Role != "statistics" {
		t.Errorf("unexpected active claims: %+v", status.ActiveClaims)
	}
	if status.FindingCount != 1 {
		t.Errorf("expected 1 finding, got %d", status.FindingCount)
	}
}

func TestItemService_ListItems(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()
	h.seedActiveItem("ITEM-001", 1)
	h.seedActiveItem("ITEM-002", 4)
	h.seedActiveItem("ITEM-003", 4)
	h.itemRepo.items["ITEM-003"].State = "rejected"

	all, err := h.items.ListItems(ctx, primary.ItemFilters{Stage: -1})
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	active, err := h.items.ListItems(ctx, primary.ItemFilters{State: "active", Stage: 4})
	if err != nil {
		t.Fatalf("ListItems with filters failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "ITEM-002" {
		t.Errorf("unexpected filtered items: %+v", active)
	}
}
