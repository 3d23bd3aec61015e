package secondary

import (
	"context"
	"fmt"
	"time"
)

// Analyzer defines the secondary port for role analysis. An analyzer
// examines an item's payload from one role's perspective and produces a
// verdict with supporting evidence.
type Analyzer interface {
	// Analyze runs the role's check against the item. A failed analysis
	// returns an *AnalysisError; the caller decides how the failure
	// participates in consensus.
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// AnalysisRequest describes one role analysis to perform.
type AnalysisRequest struct {
	ItemID     string
	PayloadRef string
	Stage      int
	Role       string
	AgentID    string
}

// AnalysisResult is the outcome of one role analysis. Cross-validator
// agreement is computed downstream from the findings themselves, so the
// result carries only the analyzer's own judgment.
type AnalysisResult struct {
	Verdict    string // validated, invalidated, uncertain
	Confidence float64
	Evidence   []string
}

// AnalysisError indicates a role analysis failed rather than concluded.
// It satisfies error and unwraps to the underlying cause.
type AnalysisError struct {
	Role   string
	ItemID string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for role %s on %s: %v", e.Role, e.ItemID, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// ReportWriter defines the secondary port for durable stage reports. The
// pipeline writes the stage report before any state transition, so a
// crash between the two leaves a report without a transition, never the
// reverse.
type ReportWriter interface {
	// WriteStageReport durably records the stage outcome.
	WriteStageReport(ctx context.Context, report *StageReport) error
}

// StageReport is the durable record of a completed stage evaluation.
type StageReport struct {
	ItemID             string
	Stage              int
	Verdict            string
	Confidence         float64
	RuleApplied        string
	ParticipatingRoles []string
	ElapsedSeconds     float64
}

// Clock defines the secondary port for time. Services take their notion
// of now from here so tests can drive stage windows deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
