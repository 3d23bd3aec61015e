package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// ConsensusRepository implements secondary.ConsensusRepository with
// SQLite. It doubles as the pipeline's secondary.ReportWriter: a stage
// report is exactly a consensus record, written before the transition.
type ConsensusRepository struct {
	db *sql.DB
}

// NewConsensusRepository creates a new SQLite consensus repository.
func NewConsensusRepository(db *sql.DB) *ConsensusRepository {
	return &ConsensusRepository{db: db}
}

func scanConsensus(scanner interface {
	Scan(dest ...any) error
}) (*secondary.ConsensusRecord, error) {
	var (
		roles      string
		recordedAt time.Time
	)

	record := &secondary.ConsensusRecord{}
	err := scanner.Scan(
		&record.ID, &record.ItemID, &record.Stage, &record.Verdict, &record.Confidence,
		&record.RuleApplied, &roles, &record.ElapsedSeconds, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(roles), &record.ParticipatingRoles); err != nil {
		return nil, fmt.Errorf("failed to decode participating roles: %w", err)
	}
	record.RecordedAt = recordedAt.Format(time.RFC3339)

	return record, nil
}

const consensusSelectCols = "id, item_id, stage, verdict, confidence, rule_applied, participating_roles, elapsed_seconds, recorded_at"

// Record persists a consensus record.
func (r *ConsensusRepository) Record(ctx context.Context, record *secondary.ConsensusRecord) error {
	roles, err := json.Marshal(record.ParticipatingRoles)
	if err != nil {
		return fmt.Errorf("failed to encode participating roles: %w", err)
	}
	if record.ParticipatingRoles == nil {
		roles = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO consensus_records (item_id, stage, verdict, confidence, rule_applied, participating_roles, elapsed_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ItemID, record.Stage, record.Verdict, record.Confidence,
		record.RuleApplied, string(roles), record.ElapsedSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to record consensus: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent consensus record for an item/stage,
// or nil when none exists.
func (r *ConsensusRepository) GetLatest(ctx context.Context, itemID string, stage int) (*secondary.ConsensusRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+consensusSelectCols+" FROM consensus_records WHERE item_id = ? AND stage = ? ORDER BY id DESC LIMIT 1",
		itemID, stage,
	)

	record, err := scanConsensus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consensus: %w", err)
	}

	return record, nil
}

// ListByItem retrieves all consensus records for an item in recorded order.
func (r *ConsensusRepository) ListByItem(ctx context.Context, itemID string) ([]*secondary.ConsensusRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+consensusSelectCols+" FROM consensus_records WHERE item_id = ? ORDER BY id",
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list consensus records: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ConsensusRecord
	for rows.Next() {
		record, err := scanConsensus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consensus record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// WriteStageReport durably records a stage outcome. Implements the
// report writer port on top of the consensus table.
func (r *ConsensusRepository) WriteStageReport(ctx context.Context, report *secondary.StageReport) error {
	return r.Record(ctx, &secondary.ConsensusRecord{
		ItemID:             report.ItemID,
		Stage:              report.Stage,
		Verdict:            report.Verdict,
		Confidence:         report.Confidence,
		RuleApplied:        report.RuleApplied,
		ParticipatingRoles: report.ParticipatingRoles,
		ElapsedSeconds:     report.ElapsedSeconds,
	})
}
