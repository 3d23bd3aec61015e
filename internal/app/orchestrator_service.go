package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/gauntlet/internal/core/consensus"
	"github.com/example/gauntlet/internal/core/item"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// PipelineServiceImpl implements the PipelineService interface. It owns
// the stage state machine: evaluation via the executor, then the durable
// report, then the guarded transition, in that order.
type PipelineServiceImpl struct {
	itemRepo secondary.ItemRepository
	executor *StageExecutor
	reports  secondary.ReportWriter
	audit    *auditor
	log      *slog.Logger

	// itemLocks serializes advancement per item within this process; the
	// repository's compare-and-swap covers other processes.
	itemLocks sync.Map // item ID -> *sync.Mutex
}

// NewPipelineService creates a new PipelineService with injected dependencies.
func NewPipelineService(
	itemRepo secondary.ItemRepository,
	executor *StageExecutor,
	reports secondary.ReportWriter,
	auditRepo secondary.AuditLogRepository,
	identity secondary.AgentIdentityProvider,
) *PipelineServiceImpl {
	return &PipelineServiceImpl{
		itemRepo: itemRepo,
		executor: executor,
		reports:  reports,
		audit:    newAuditor(auditRepo, identity),
		log:      logging.New("pipeline"),
	}
}

// AdvanceItem evaluates the item's current stage to a decisive end and
// applies the resulting transition. A non-decisive or uncertain round
// consumes the stage's retries before the item is rejected.
func (s *PipelineServiceImpl) AdvanceItem(ctx context.Context, req primary.AdvanceItemRequest) (*primary.AdvanceItemResponse, error) {
	lock := s.lockFor(req.ItemID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if guard := item.CanAdvance(item.AdvanceContext{
		ItemID:       record.ID,
		State:        record.State,
		CurrentStage: record.CurrentStage,
	}); !guard.Allowed {
		return nil, fmt.Errorf("%v: %w", guard.Error(), secondary.ErrInvalidTransition)
	}

	st, err := stage.Get(record.CurrentStage)
	if err != nil {
		return nil, err
	}
	th, err := s.executor.cfg.ThresholdsFor(st.Name)
	if err != nil {
		return nil, err
	}

	retried := false
	for {
		outcome, err := s.executor.EvaluateStage(ctx, record)
		if err != nil {
			return nil, err
		}

		if outcome.Decisive() && outcome.Verdict != consensus.Uncertain {
			return s.applyOutcome(ctx, record, st, outcome, retried)
		}

		// Uncertain or deferred: burn a retry if one is left.
		attempt := record.Attempt + 1
		if guard := item.CanRetry(item.RetryContext{
			ItemID:     record.ID,
			Attempt:    attempt,
			RetryLimit: th.RetryLimit,
		}); !guard.Allowed {
			return s.applyOutcome(ctx, record, st, outcome, retried)
		}

		// The burned attempt leaves a durable trace before the retry.
		if err := s.reports.WriteStageReport(ctx, &secondary.StageReport{
			ItemID:             record.ID,
			Stage:              st.Ordinal,
			Verdict:            string(outcome.Verdict),
			Confidence:         outcome.Confidence,
			RuleApplied:        string(outcome.Rule),
			ParticipatingRoles: outcome.ParticipatingRoles,
			ElapsedSeconds:     outcome.Elapsed.Seconds(),
		}); err != nil {
			return nil, fmt.Errorf("failed to write stage report: %w", err)
		}

		if err := s.itemRepo.SetAttempt(ctx, record.ID, attempt); err != nil {
			return nil, err
		}
		record.Attempt = attempt
		retried = true
		s.log.Info("stage retried",
			"item", record.ID, "stage", st.Name, "attempt", attempt, "rule", outcome.Rule)
	}
}

// applyOutcome writes the stage report, records history, and moves the
// item. The report lands before the transition: a crash in between leaves
// a report without a moved item, which re-evaluation repairs, never the
// reverse.
func (s *PipelineServiceImpl) applyOutcome(
	ctx context.Context,
	record *secondary.ItemRecord,
	st stage.Stage,
	outcome *consensus.Outcome,
	retried bool,
) (*primary.AdvanceItemResponse, error) {
	err := s.reports.WriteStageReport(ctx, &secondary.StageReport{
		ItemID:             record.ID,
		Stage:              st.Ordinal,
		Verdict:            string(outcome.Verdict),
		Confidence:         outcome.Confidence,
		RuleApplied:        string(outcome.Rule),
		ParticipatingRoles: outcome.ParticipatingRoles,
		ElapsedSeconds:     outcome.Elapsed.Seconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write stage report: %w", err)
	}

	if err := s.itemRepo.AppendHistory(ctx, &secondary.StageHistoryRecord{
		ItemID:      record.ID,
		Stage:       st.Ordinal,
		Verdict:     string(outcome.Verdict),
		RuleApplied: string(outcome.Rule),
		Confidence:  outcome.Confidence,
	}); err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}

	resp := &primary.AdvanceItemResponse{
		ItemID:      record.ID,
		Stage:       st.Ordinal,
		StageName:   st.Name,
		Verdict:     string(outcome.Verdict),
		Confidence:  outcome.Confidence,
		RuleApplied: string(outcome.Rule),
		Retried:     retried,
	}

	switch outcome.Verdict {
	case consensus.Validated:
		nextState, nextStage := item.NextState(st.Ordinal)
		if nextState == item.StateApproved {
			moved, err := s.itemRepo.MarkTerminal(ctx, record.ID, st.Ordinal, item.StateApproved, "")
			if err != nil {
				return nil, err
			}
			if !moved {
				return nil, fmt.Errorf("item %s moved concurrently: %w", record.ID, secondary.ErrInvalidTransition)
			}
			resp.State = item.StateApproved
			resp.NextStage = st.Ordinal
			s.audit.record(ctx, "item", record.ID, "approve",
				fmt.Sprintf("stage=%s confidence=%.2f", st.Name, outcome.Confidence))
			s.log.Info("item approved", "item", record.ID, "confidence", outcome.Confidence)
		} else {
			moved, err := s.itemRepo.AdvanceStage(ctx, record.ID, st.Ordinal, nextStage)
			if err != nil {
				return nil, err
			}
			if !moved {
				return nil, fmt.Errorf("item %s moved concurrently: %w", record.ID, secondary.ErrInvalidTransition)
			}
			resp.State = item.StateActive
			resp.NextStage = nextStage
			s.audit.record(ctx, "item", record.ID, "advance",
				fmt.Sprintf("from=%s to=%s rule=%s", st.Name, stage.Name(nextStage), outcome.Rule))
			s.log.Info("item advanced",
				"item", record.ID, "from", st.Name, "to", stage.Name(nextStage), "rule", outcome.Rule)
		}

	case consensus.Invalidated:
		if err := s.reject(ctx, record, st, item.ReasonStageFailed); err != nil {
			return nil, err
		}
		resp.State = item.StateRejected
		resp.NextStage = st.Ordinal

	default:
		// Uncertain with retries exhausted, or a timed-out deferral.
		if err := s.reject(ctx, record, st, item.ReasonInsufficientEvidence); err != nil {
			return nil, err
		}
		resp.State = item.StateRejected
		resp.NextStage = st.Ordinal
	}

	return resp, nil
}

func (s *PipelineServiceImpl) reject(ctx context.Context, record *secondary.ItemRecord, st stage.Stage, reason string) error {
	moved, err := s.itemRepo.MarkTerminal(ctx, record.ID, st.Ordinal, item.StateRejected, reason)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("item %s moved concurrently: %w", record.ID, secondary.ErrInvalidTransition)
	}
	s.audit.record(ctx, "item", record.ID, "reject", fmt.Sprintf("stage=%s reason=%s", st.Name, reason))
	s.log.Info("item rejected", "item", record.ID, "stage", st.Name, "reason", reason)
	return nil
}

// RunItem drives an item through consecutive stages until it reaches a
// terminal state.
func (s *PipelineServiceImpl) RunItem(ctx context.Context, req primary.RunItemRequest) (*primary.RunItemResponse, error) {
	resp := &primary.RunItemResponse{ItemID: req.ItemID}

	// Upper bound on rounds so a bug cannot loop forever.
	for i := 0; i < stage.Count+1; i++ {
		record, err := s.itemRepo.GetByID(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		resp.FinalState = record.State
		resp.FinalStage = record.CurrentStage
		if item.IsTerminal(record.State) {
			return resp, nil
		}

		outcome, err := s.AdvanceItem(ctx, primary.AdvanceItemRequest{ItemID: req.ItemID})
		if err != nil {
			return nil, err
		}
		resp.Outcomes = append(resp.Outcomes, outcome)
		resp.FinalState = outcome.State
		resp.FinalStage = outcome.NextStage
	}

	return resp, nil
}

// RunQueue drives every active item through the pipeline with a bounded
// worker pool.
func (s *PipelineServiceImpl) RunQueue(ctx context.Context, req primary.RunQueueRequest) (*primary.RunQueueResponse, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = 1
	}

	records, err := s.itemRepo.List(ctx, secondary.ItemFilters{State: item.StateActive, Stage: -1})
	if err != nil {
		return nil, err
	}

	results := make([]*primary.RunItemResponse, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range records {
		i, id := i, r.ID
		g.Go(func() error {
			res, err := s.RunItem(gctx, primary.RunItemRequest{ItemID: id})
			if err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &primary.RunQueueResponse{Processed: len(results), Results: results}
	for _, r := range results {
		switch r.FinalState {
		case item.StateApproved:
			resp.Approved++
		case item.StateRejected:
			resp.Rejected++
		default:
			resp.Deferred++
		}
	}
	return resp, nil
}

// ForceClose terminally rejects an item regardless of stage.
func (s *PipelineServiceImpl) ForceClose(ctx context.Context, req primary.ForceCloseRequest) error {
	lock := s.lockFor(req.ItemID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return err
	}

	if guard := item.CanForceClose(item.ForceCloseContext{
		ItemID: record.ID,
		State:  record.State,
		Reason: req.Reason,
	}); !guard.Allowed {
		return guard.Error()
	}

	moved, err := s.itemRepo.MarkTerminal(ctx, record.ID, record.CurrentStage, item.StateRejected, item.ReasonForceClosed)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("item %s moved concurrently: %w", record.ID, secondary.ErrInvalidTransition)
	}

	s.audit.record(ctx, "item", record.ID, "force_close", req.Reason)
	s.log.Warn("item force-closed", "item", record.ID, "reason", req.Reason)
	return nil
}

func (s *PipelineServiceImpl) lockFor(itemID string) *sync.Mutex {
	actual, _ := s.itemLocks.LoadOrStore(itemID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Ensure PipelineServiceImpl implements the interface
var _ primary.PipelineService = (*PipelineServiceImpl)(nil)
