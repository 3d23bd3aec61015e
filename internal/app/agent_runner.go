package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/gauntlet/internal/core/item"
	"github.com/example/gauntlet/internal/ctxutil"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// AgentRunner is a standalone validation worker for one role. It polls
// the queue for items whose current stage has its role open, claims the
// slot, analyzes, and submits. It goes through the same registry as the
// in-process runners, so several agent processes and a pipeline run can
// share a queue safely.
type AgentRunner struct {
	items    primary.ItemService
	registry primary.RegistryService
	analyzer secondary.Analyzer
	role     string
	agentID  string
	log      *slog.Logger

	// Poll is the queue scan cadence. Zero means the default.
	Poll time.Duration
}

const defaultAgentPoll = 2 * time.Second

// NewAgentRunner creates a new AgentRunner for one role.
func NewAgentRunner(
	items primary.ItemService,
	registry primary.RegistryService,
	analyzer secondary.Analyzer,
	role, agentID string,
) *AgentRunner {
	return &AgentRunner{
		items:    items,
		registry: registry,
		analyzer: analyzer,
		role:     role,
		agentID:  agentID,
		log:      logging.New("agent"),
	}
}

// Run polls and works until the context is canceled.
func (a *AgentRunner) Run(ctx context.Context) error {
	ctx = ctxutil.WithActorID(ctx, a.agentID)

	poll := a.Poll
	if poll <= 0 {
		poll = defaultAgentPoll
	}

	a.log.Info("agent started", "role", a.role, "agent", a.agentID, "poll", poll)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		worked, err := a.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("work pass failed", "error", err)
		}

		if worked {
			// Something was processed; scan again immediately.
			continue
		}

		select {
		case <-ctx.Done():
			a.log.Info("agent stopped", "agent", a.agentID)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce scans the queue once and processes at most one slot. Returns
// whether a finding was submitted.
func (a *AgentRunner) RunOnce(ctx context.Context) (bool, error) {
	items, err := a.items.ListItems(ctx, primary.ItemFilters{State: item.StateActive, Stage: -1})
	if err != nil {
		return false, fmt.Errorf("failed to scan queue: %w", err)
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		open, err := a.registry.AvailableRoles(ctx, it.ID)
		if err != nil {
			a.log.Warn("failed to list open roles", "item", it.ID, "error", err)
			continue
		}
		if !contains(open.Roles, a.role) {
			continue
		}

		claim, err := a.registry.ClaimSlot(ctx, primary.ClaimSlotRequest{
			ItemID:  it.ID,
			Role:    a.role,
			AgentID: a.agentID,
		})
		if errors.Is(err, secondary.ErrClaimConflict) {
			// Another agent got there first; keep scanning.
			continue
		}
		if err != nil {
			a.log.Warn("failed to claim slot", "item", it.ID, "error", err)
			continue
		}

		if err := a.work(ctx, it, claim); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// work analyzes one claimed slot and submits the finding, heartbeating
// while the analysis runs.
func (a *AgentRunner) work(ctx context.Context, it *primary.Item, claim *primary.ClaimSlotResponse) error {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go a.keepAlive(hbCtx, claim.SlotToken, claim.HeartbeatSeconds)

	result, err := a.analyzer.Analyze(ctx, secondary.AnalysisRequest{
		ItemID:     it.ID,
		PayloadRef: claim.PayloadRef,
		Stage:      claim.Stage,
		Role:       a.role,
		AgentID:    a.agentID,
	})
	if err != nil {
		var analysisErr *secondary.AnalysisError
		if !errors.As(err, &analysisErr) || ctx.Err() != nil {
			_ = a.registry.ReleaseSlot(context.WithoutCancel(ctx), claim.SlotToken)
			return err
		}
		result = &secondary.AnalysisResult{
			Verdict:    "uncertain",
			Confidence: 0,
			Evidence:   []string{fmt.Sprintf("analysis failed: %v", analysisErr.Err)},
		}
	}

	resp, err := a.registry.SubmitFinding(ctx, primary.SubmitFindingRequest{
		SlotToken:  claim.SlotToken,
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		Evidence:   result.Evidence,
	})
	if err != nil {
		return fmt.Errorf("failed to submit finding: %w", err)
	}

	a.log.Info("finding submitted",
		"item", it.ID, "stage", claim.StageName, "verdict", result.Verdict,
		"confidence", fmt.Sprintf("%.2f", result.Confidence), "parallel", resp.Parallel)
	return nil
}

func (a *AgentRunner) keepAlive(ctx context.Context, token string, heartbeatSeconds int) {
	if heartbeatSeconds <= 0 {
		return
	}

	interval := time.Duration(heartbeatSeconds) * time.Second / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.registry.Heartbeat(ctx, token); err != nil {
				return
			}
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
