package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// FindingRepository implements secondary.FindingRepository with SQLite.
// Evidence lists are stored as JSON text in a single column.
type FindingRepository struct {
	db *sql.DB
}

// NewFindingRepository creates a new SQLite finding repository.
func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

func scanFinding(scanner interface {
	Scan(dest ...any) error
}) (*secondary.FindingRecord, error) {
	var (
		evidence    string
		parallel    bool
		submittedAt time.Time
	)

	record := &secondary.FindingRecord{}
	err := scanner.Scan(
		&record.ID, &record.ItemID, &record.Stage, &record.Role, &record.AgentID,
		&record.Verdict, &record.Confidence, &evidence, &parallel, &submittedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(evidence), &record.Evidence); err != nil {
		return nil, fmt.Errorf("failed to decode evidence: %w", err)
	}
	record.Parallel = parallel
	record.SubmittedAt = submittedAt.Format(time.RFC3339)

	return record, nil
}

const findingSelectCols = "id, item_id, stage, role, agent_id, verdict, confidence, evidence, parallel, submitted_at"

// Append persists a new finding. Findings are never updated or deleted.
func (r *FindingRepository) Append(ctx context.Context, finding *secondary.FindingRecord) error {
	evidence, err := json.Marshal(finding.Evidence)
	if err != nil {
		return fmt.Errorf("failed to encode evidence: %w", err)
	}
	if finding.Evidence == nil {
		evidence = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO findings (id, item_id, stage, role, agent_id, verdict, confidence, evidence, parallel, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime(COALESCE(NULLIF(?, ''), 'now')))`,
		finding.ID, finding.ItemID, finding.Stage, finding.Role, finding.AgentID,
		finding.Verdict, finding.Confidence, string(evidence), finding.Parallel, finding.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append finding: %w", err)
	}

	return nil
}

// ListByStage retrieves all findings for an item/stage in arrival order.
func (r *FindingRepository) ListByStage(ctx context.Context, itemID string, stage int) ([]*secondary.FindingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+findingSelectCols+" FROM findings WHERE item_id = ? AND stage = ? ORDER BY submitted_at, id",
		itemID, stage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var findings []*secondary.FindingRecord
	for rows.Next() {
		record, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, record)
	}

	return findings, rows.Err()
}

// CountByStage returns the number of findings for an item/stage.
func (r *FindingRepository) CountByStage(ctx context.Context, itemID string, stage int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM findings WHERE item_id = ? AND stage = ?",
		itemID, stage,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count findings: %w", err)
	}

	return count, nil
}
