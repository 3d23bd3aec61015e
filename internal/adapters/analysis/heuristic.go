// Package analysis contains analyzer implementations for the role
// validation port.
package analysis

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// HeuristicAnalyzer is a deterministic analyzer for local runs and the
// agent simulator. It derives its verdict from a hash of the item, stage
// and role, so repeated runs over the same queue reproduce the same
// outcomes without an external review model.
type HeuristicAnalyzer struct {
	bias float64 // share of slots resolving to validated, 0..1
}

// NewHeuristicAnalyzer creates a heuristic analyzer. bias is the share
// of analyses that validate; the remainder splits evenly between
// uncertain and invalidated.
func NewHeuristicAnalyzer(bias float64) *HeuristicAnalyzer {
	if bias < 0 {
		bias = 0
	}
	if bias > 1 {
		bias = 1
	}
	return &HeuristicAnalyzer{bias: bias}
}

// Analyze produces a deterministic verdict for the request.
func (a *HeuristicAnalyzer) Analyze(ctx context.Context, req secondary.AnalysisRequest) (*secondary.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &secondary.AnalysisError{Role: req.Role, ItemID: req.ItemID, Err: err}
	}

	draw := fraction(req.ItemID, req.Stage, req.Role, "verdict")

	var verdict string
	switch {
	case draw < a.bias:
		verdict = "validated"
	case draw < a.bias+(1-a.bias)/2:
		verdict = "uncertain"
	default:
		verdict = "invalidated"
	}

	confidence := 0.6 + 0.35*fraction(req.ItemID, req.Stage, req.Role, "confidence")
	if verdict == "uncertain" {
		confidence = 0.3 + 0.25*fraction(req.ItemID, req.Stage, req.Role, "confidence")
	}

	return &secondary.AnalysisResult{
		Verdict:    verdict,
		Confidence: confidence,
		Evidence: []string{
			fmt.Sprintf("%s check on %s stage %d: %s", req.Role, req.ItemID, req.Stage, verdict),
		},
	}, nil
}

// fraction hashes the inputs into [0, 1).
func fraction(itemID string, stage int, role, salt string) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s/%d/%s/%s", itemID, stage, role, salt)
	return float64(h.Sum64()%10000) / 10000
}

// Ensure HeuristicAnalyzer implements the interface
var _ secondary.Analyzer = (*HeuristicAnalyzer)(nil)
