package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/gauntlet/internal/adapters/persistence"
	"github.com/example/gauntlet/internal/adapters/sqlite"
	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/db"
	"github.com/example/gauntlet/internal/ports/primary"
)

// sqlitePipeline wires the pipeline over real SQLite repositories so the
// schema's constraints participate in the test, not just the mocks.
type sqlitePipeline struct {
	db       *sql.DB
	pipeline *PipelineServiceImpl
}

func newSQLitePipeline(t *testing.T, cfg *config.Config) *sqlitePipeline {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	itemRepo := sqlite.NewItemRepository(testDB)
	claimRepo := sqlite.NewClaimRepository(testDB)
	findingRepo := sqlite.NewFindingRepository(testDB)
	consensusRepo := sqlite.NewConsensusRepository(testDB)
	auditRepo := sqlite.NewAuditLogRepository(testDB)

	clock := persistence.NewSystemClock()
	identity := operatorIdentity()
	registry := NewRegistryService(itemRepo, claimRepo, findingRepo, clock, cfg, auditRepo, identity)
	executor := NewStageExecutor(registry, validatingAnalyzer(0.9), findingRepo, clock, cfg)
	executor.Poll = 10 * time.Millisecond

	return &sqlitePipeline{
		db:       testDB,
		pipeline: NewPipelineService(itemRepo, executor, consensusRepo, auditRepo, identity),
	}
}

func (p *sqlitePipeline) seedItem(t *testing.T, id string, stage int) {
	t.Helper()
	_, err := p.db.Exec(
		"INSERT INTO items (id, title, payload_ref, current_stage, state) VALUES (?, ?, ?, ?, 'active')",
		id, "Test Item", "papers/test.pdf", stage,
	)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
}

func (p *sqlitePipeline) blockSlot(t *testing.T, itemID string, stage int, role string) {
	t.Helper()
	_, err := p.db.Exec(
		`INSERT INTO claims (token, item_id, stage, role, agent_id, status, last_heartbeat)
		 VALUES (?, ?, ?, ?, 'AGENT-ext-01', 'active', datetime('now', '-1 hour'))`,
		"SLOT-ext-"+role, itemID, stage, role,
	)
	if err != nil {
		t.Fatalf("failed to block slot: %v", err)
	}
}

// A stage where every slot is held by an unresponsive agent collects no
// findings, times out deferred, and must still persist its uncertain
// verdict past the schema's constraints on the way to rejection.
func TestPipelineService_AdvanceItem_TimeoutRejectsOverSQLite(t *testing.T) {
	p := newSQLitePipeline(t, fastConfig())
	ctx := context.Background()
	p.seedItem(t, "ITEM-001", 0)
	for _, role := range []string{"provenance", "literature", "logic"} {
		p.blockSlot(t, "ITEM-001", 0, role)
	}

	resp, err := p.pipeline.AdvanceItem(ctx, primary.AdvanceItemRequest{ItemID: "ITEM-001"})
	if err != nil {
		t.Fatalf("AdvanceItem failed: %v", err)
	}
	if resp.State != "rejected" {
		t.Errorf("expected rejected after timeout, got %s", resp.State)
	}
	if !resp.Retried {
		t.Error("expected the timed-out stage to consume its retry")
	}
	if resp.Verdict != "uncertain" || resp.RuleApplied != "deferred" {
		t.Errorf("expected uncertain/deferred outcome, got %s/%s", resp.Verdict, resp.RuleApplied)
	}

	var state, reason string
	if err := p.db.QueryRow(
		"SELECT state, reject_reason FROM items WHERE id = 'ITEM-001'",
	).Scan(&state, &reason); err != nil {
		t.Fatalf("failed to read item: %v", err)
	}
	if state != "rejected" || reason != "insufficient_evidence" {
		t.Errorf("expected rejected/insufficient_evidence, got %s/%s", state, reason)
	}

	// Both the burned attempt and the final one landed in the store.
	rows, err := p.db.Query(
		"SELECT verdict, rule_applied FROM consensus_records WHERE item_id = 'ITEM-001' ORDER BY id",
	)
	if err != nil {
		t.Fatalf("failed to read consensus records: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var verdict, rule string
		if err := rows.Scan(&verdict, &rule); err != nil {
			t.Fatalf("failed to scan consensus record: %v", err)
		}
		if verdict != "uncertain" || rule != "deferred" {
			t.Errorf("record %d: expected uncertain/deferred, got %s/%s", count, verdict, rule)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 consensus records, got %d", count)
	}

	var historyVerdict string
	if err := p.db.QueryRow(
		"SELECT verdict FROM stage_history WHERE item_id = 'ITEM-001' AND stage = 0",
	).Scan(&historyVerdict); err != nil {
		t.Fatalf("failed to read stage history: %v", err)
	}
	if historyVerdict != "uncertain" {
		t.Errorf("expected uncertain history entry, got %s", historyVerdict)
	}
}
