package app

import (
	"context"
	"testing"
	"time"

	"github.com/example/gauntlet/internal/config"
)

func newTestRunner(h *harness, role, agentID string) *AgentRunner {
	return NewAgentRunner(h.items, h.registry, h.analyzer, role, agentID)
}

func TestAgentRunner_RunOnce_SubmitsFinding(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()
	h.seedActiveItem("ITEM-001", 3)

	runner := newTestRunner(h, "units", "AGENT-units-07")
	worked, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !worked {
		t.Fatal("expected the runner to process a slot")
	}

	findings, _ := h.findingRepo.ListByStage(ctx, "ITEM-001", 3)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Role != "units" || f.AgentID != "AGENT-units-07" || f.Verdict != "validated" {
		t.Errorf("unexpected finding: %+v", f)
	}
	if f.Parallel {
		t.Error("a finding through a live claim must not be flagged parallel")
	}

	// The reported role stays closed so a second pass finds no work.
	open, err := h.registry.AvailableRoles(ctx, "ITEM-001")
	if err != nil {
		t.Fatalf("AvailableRoles failed: %v", err)
	}
	if contains(open.Roles, "units") {
		t.Errorf("expected units role closed after reporting, got %v", open.Roles)
	}

	worked, err = runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if worked {
		t.Fatal("expected no rework once the role has reported")
	}
	if n, _ := h.findingRepo.CountByStage(ctx, "ITEM-001", 3); n != 1 {
		t.Errorf("expected a single finding after the second pass, got %d", n)
	}
}

func TestAgentRunner_RunOnce_SkipsHeldSlot(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(clock, config.Default())
	ctx := context.Background()
	h.seedActiveItem("ITEM-001", 3)
	blockRole(t, h, "ITEM-001", 3, "units", clock.Now().Format(time.RFC3339))

	runner := newTestRunner(h, "units", "AGENT-units-07")
	worked, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if worked {
		t.Fatal("expected no work while another agent holds the slot")
	}
	if n, _ := h.findingRepo.CountByStage(ctx, "ITEM-001", 3); n != 0 {
		t.Errorf("expected no findings, got %d", n)
	}
}

func TestAgentRunner_RunOnce_RoleNotInStage(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()
	// Stage 1 content-review has no units slot.
	h.seedActiveItem("ITEM-001", 1)

	runner := newTestRunner(h, "units", "AGENT-units-07")
	worked, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if worked {
		t.Fatal("expected no work for a role the stage does not seat")
	}
}

func TestAgentRunner_RunOnce_AnalysisFailureSubmitsUncertain(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())
	ctx := context.Background()
	h.seedActiveItem("ITEM-001", 3)
	h.analyzer.failRoles = map[string]bool{"units": true}

	runner := newTestRunner(h, "units", "AGENT-units-07")
	worked, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !worked {
		t.Fatal("expected the failed analysis to still produce a finding")
	}

	findings, _ := h.findingRepo.ListByStage(ctx, "ITEM-001", 3)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Verdict != "uncertain" || f.Confidence != 0 {
		t.Errorf("expected an uncertain zero-confidence finding, got %+v", f)
	}
	if len(f.Evidence) == 0 {
		t.Error("expected the failure reason recorded as evidence")
	}
}

func TestAgentRunner_RunOnce_EmptyQueue(t *testing.T) {
	h := newHarness(newFakeClock(), config.Default())

	runner := newTestRunner(h, "logic", "AGENT-logic-01")
	worked, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if worked {
		t.Fatal("expected nothing to do on an empty queue")
	}
}
