// Package item contains the pure business logic for item lifecycle
// transitions. Guards are pure functions that evaluate preconditions
// without side effects.
package item

import (
	"fmt"

	"github.com/example/gauntlet/internal/core/stage"
)

// State enumerates item lifecycle states.
const (
	StateActive   = "active"
	StateApproved = "approved"
	StateRejected = "rejected"
)

// Rejection reason codes surfaced to the operator.
const (
	ReasonInsufficientEvidence = "insufficient_evidence"
	ReasonStageFailed          = "stage_failed"
	ReasonForceClosed          = "force_closed"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// IsTerminal reports whether a state admits no further transitions.
func IsTerminal(state string) bool {
	return state == StateApproved || state == StateRejected
}

// AdvanceContext provides context for stage-advancement guards.
type AdvanceContext struct {
	ItemID       string
	State        string
	CurrentStage int
}

// CanAdvance evaluates whether an item may attempt its current stage.
// Rules:
// - Item must be in the active state
// - Current stage must be a valid ordinal
func CanAdvance(ctx AdvanceContext) GuardResult {
	if IsTerminal(ctx.State) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("item %s is already %s", ctx.ItemID, ctx.State),
		}
	}
	if ctx.State != StateActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("item %s has unknown state %q", ctx.ItemID, ctx.State),
		}
	}
	if ctx.CurrentStage < 0 || ctx.CurrentStage >= stage.Count {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("item %s has out-of-range stage %d", ctx.ItemID, ctx.CurrentStage),
		}
	}
	return GuardResult{Allowed: true}
}

// NextState returns the state and stage an item moves to after a passing
// verdict at fromStage. The last stage promotes to approved.
func NextState(fromStage int) (state string, nextStage int) {
	if fromStage >= stage.Count-1 {
		return StateApproved, fromStage
	}
	return StateActive, fromStage + 1
}

// RetryContext provides context for deferred-stage retry guards.
type RetryContext struct {
	ItemID     string
	Attempt    int // attempts already made at this stage
	RetryLimit int
}

// CanRetry evaluates whether a deferred stage attempt may be retried.
func CanRetry(ctx RetryContext) GuardResult {
	if ctx.Attempt > ctx.RetryLimit {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("item %s exhausted %d retries", ctx.ItemID, ctx.RetryLimit),
		}
	}
	return GuardResult{Allowed: true}
}

// ForceCloseContext provides context for operator force-close guards.
type ForceCloseContext struct {
	ItemID string
	State  string
	Reason string
}

// CanForceClose evaluates whether the operator may force-close an item's
// current stage. Rules:
// - Item must be active
// - A reason must be given (it ends up in the audit trail)
func CanForceClose(ctx ForceCloseContext) GuardResult {
	if IsTerminal(ctx.State) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("item %s is already %s", ctx.ItemID, ctx.State),
		}
	}
	if ctx.Reason == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "force-close requires a reason",
		}
	}
	return GuardResult{Allowed: true}
}
