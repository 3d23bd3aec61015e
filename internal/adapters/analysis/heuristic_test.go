package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/gauntlet/internal/adapters/analysis"
	"github.com/example/gauntlet/internal/ports/secondary"
)

func TestHeuristicAnalyzer_Deterministic(t *testing.T) {
	a := analysis.NewHeuristicAnalyzer(0.7)
	ctx := context.Background()
	req := secondary.AnalysisRequest{ItemID: "ITEM-001", Stage: 2, Role: "units", AgentID: "AGENT-units-01"}

	first, err := a.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := a.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("expected identical results for identical requests (-first +second):\n%s", diff)
	}
}

func TestHeuristicAnalyzer_ResultShape(t *testing.T) {
	a := analysis.NewHeuristicAnalyzer(0.7)
	ctx := context.Background()

	for _, role := range []string{"units", "logic", "statistics", "simulation"} {
		res, err := a.Analyze(ctx, secondary.AnalysisRequest{ItemID: "ITEM-042", Stage: 3, Role: role})
		if err != nil {
			t.Fatalf("Analyze failed for %s: %v", role, err)
		}
		switch res.Verdict {
		case "validated", "invalidated", "uncertain":
		default:
			t.Errorf("role %s: unexpected verdict %q", role, res.Verdict)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("role %s: confidence %f out of range", role, res.Confidence)
		}
		if len(res.Evidence) == 0 {
			t.Errorf("role %s: expected evidence", role)
		}
	}
}

func TestHeuristicAnalyzer_AllValidatedAtFullBias(t *testing.T) {
	a := analysis.NewHeuristicAnalyzer(1.0)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		res, err := a.Analyze(ctx, secondary.AnalysisRequest{ItemID: "ITEM-001", Stage: i, Role: "logic"})
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if res.Verdict != "validated" {
			t.Errorf("stage %d: expected validated at bias 1.0, got %s", i, res.Verdict)
		}
	}
}

func TestHeuristicAnalyzer_CanceledContext(t *testing.T) {
	a := analysis.NewHeuristicAnalyzer(0.7)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, secondary.AnalysisRequest{ItemID: "ITEM-001", Stage: 0, Role: "units"})
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
	var analysisErr *secondary.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected *AnalysisError, got %T", err)
	}
	if analysisErr.Role != "units" {
		t.Errorf("expected role carried on error, got %q", analysisErr.Role)
	}
}
