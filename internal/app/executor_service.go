package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/core/consensus"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// StageExecutor runs one stage evaluation session for an item: it spins
// up an in-process role runner per open slot, re-evaluates consensus as
// findings arrive, and concludes when a rule fires or the absolute
// timeout lapses.
//
// Runners go through the registry like any external agent, so slots held
// by outside processes are simply skipped here and their findings picked
// up by the periodic re-evaluation.
type StageExecutor struct {
	registry    primary.RegistryService
	analyzer    secondary.Analyzer
	findingRepo secondary.FindingRepository
	clock       secondary.Clock
	cfg         *config.Config
	log         *slog.Logger

	// Poll is the re-evaluation cadence for findings submitted by
	// external agents. Zero means the default.
	Poll time.Duration
}

const defaultPoll = 500 * time.Millisecond

// NewStageExecutor creates a new StageExecutor with injected dependencies.
func NewStageExecutor(
	registry primary.RegistryService,
	analyzer secondary.Analyzer,
	findingRepo secondary.FindingRepository,
	clock secondary.Clock,
	cfg *config.Config,
) *StageExecutor {
	return &StageExecutor{
		registry:    registry,
		analyzer:    analyzer,
		findingRepo: findingRepo,
		clock:       clock,
		cfg:         cfg,
		log:         logging.New("executor"),
	}
}

// EvaluateStage evaluates the item's current stage to its conclusion.
// The returned outcome is deferred when the absolute timeout passed
// without any consensus rule firing.
func (e *StageExecutor) EvaluateStage(ctx context.Context, item *secondary.ItemRecord) (*consensus.Outcome, error) {
	st, err := stage.Get(item.CurrentStage)
	if err != nil {
		return nil, err
	}
	th, err := e.cfg.ThresholdsFor(st.Name)
	if err != nil {
		return nil, err
	}
	th = st.EffectiveThresholds(th)

	start := e.clock.Now()
	e.log.Info("stage session opened", "item", item.ID, "stage", st.Name, "roles", len(st.Roles))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notify := make(chan struct{}, 2*len(st.Roles))
	g, gctx := errgroup.WithContext(runCtx)
	for _, role := range st.Roles {
		role := role
		g.Go(func() error {
			e.runRole(gctx, item, st, role, notify)
			return nil
		})
	}

	runnersDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(runnersDone)
	}()

	poll := e.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-notify:
		case <-ticker.C:
		case <-runnersDone:
			runnersDone = nil // stop selecting on the closed channel
		}

		elapsed := e.clock.Now().Sub(start)
		out, err := e.evaluate(ctx, item, th, elapsed)
		if err != nil {
			return nil, err
		}

		if out.Decisive() {
			cancel()
			e.log.Info("stage session closed",
				"item", item.ID, "stage", st.Name, "verdict", out.Verdict, "rule", out.Rule,
				"confidence", fmt.Sprintf("%.2f", out.Confidence), "elapsed", elapsed.Round(time.Second))
			return out, nil
		}

		if elapsed >= th.AbsoluteTimeout {
			cancel()
			e.log.Warn("stage session timed out",
				"item", item.ID, "stage", st.Name, "roles_heard", len(out.ParticipatingRoles),
				"elapsed", elapsed.Round(time.Second))
			return out, nil
		}
	}
}

// evaluate loads the stage's findings and applies the consensus rules.
func (e *StageExecutor) evaluate(ctx context.Context, item *secondary.ItemRecord, th stage.Thresholds, elapsed time.Duration) (*consensus.Outcome, error) {
	records, err := e.findingRepo.ListByStage(ctx, item.ID, item.CurrentStage)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings: %w", err)
	}

	findings := make([]consensus.Finding, 0, len(records))
	for _, r := range records {
		findings = append(findings, consensus.Finding{
			Role:       r.Role,
			AgentID:    r.AgentID,
			Verdict:    consensus.Verdict(r.Verdict),
			Confidence: r.Confidence,
			Evidence:   r.Evidence,
			Parallel:   r.Parallel,
		})
	}

	out := consensus.Evaluate(findings, th, elapsed)
	return &out, nil
}

// runRole claims one role slot, analyzes, and submits the finding. Slots
// already held elsewhere are skipped; a failed analysis still submits, as
// uncertain with zero confidence, so the failure is visible in the record
// rather than a silent hole in the stage.
func (e *StageExecutor) runRole(ctx context.Context, item *secondary.ItemRecord, st stage.Stage, role string, notify chan<- struct{}) {
	agentID := fmt.Sprintf("AGENT-%s-inline", role)

	claim, err := e.registry.ClaimSlot(ctx, primary.ClaimSlotRequest{
		ItemID:  item.ID,
		Role:    role,
		AgentID: agentID,
	})
	if errors.Is(err, secondary.ErrClaimConflict) {
		e.log.Debug("slot held elsewhere", "item", item.ID, "stage", st.Name, "role", role)
		return
	}
	if err != nil {
		e.log.Warn("failed to claim slot", "item", item.ID, "role", role, "error", err)
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go e.keepAlive(hbCtx, claim.SlotToken, claim.HeartbeatSeconds)

	result, err := e.analyzer.Analyze(ctx, secondary.AnalysisRequest{
		ItemID:     item.ID,
		PayloadRef: item.PayloadRef,
		Stage:      item.CurrentStage,
		Role:       role,
		AgentID:    agentID,
	})
	if err != nil {
		var analysisErr *secondary.AnalysisError
		if !errors.As(err, &analysisErr) || ctx.Err() != nil {
			_ = e.registry.ReleaseSlot(context.WithoutCancel(ctx), claim.SlotToken)
			return
		}
		result = &secondary.AnalysisResult{
			Verdict:    string(consensus.Uncertain),
			Confidence: 0,
			Evidence:   []string{fmt.Sprintf("analysis failed: %v", analysisErr.Err)},
		}
	}

	_, err = e.registry.SubmitFinding(ctx, primary.SubmitFindingRequest{
		SlotToken:  claim.SlotToken,
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		Evidence:   result.Evidence,
	})
	if err != nil {
		e.log.Warn("failed to submit finding", "item", item.ID, "role", role, "error", err)
		return
	}

	select {
	case notify <- struct{}{}:
	default:
	}
}

// keepAlive renews the claim until the role runner finishes.
func (e *StageExecutor) keepAlive(ctx context.Context, token string, heartbeatSeconds int) {
	if heartbeatSeconds <= 0 {
		return
	}

	// Renew at a third of the timeout so one missed beat is survivable.
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
			if err := e.registry.Heartbeat(ctx, token); err != nil {
				if !errors.Is(err, context.Canceled) {
					e.log.Warn("heartbeat failed", "claim", token, "error", err)
				}
				return
			}
		}
	}
}
