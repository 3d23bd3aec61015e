// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// ItemRepository implements secondary.ItemRepository with SQLite.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new SQLite item repository.
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// scanItem scans an item row into an ItemRecord.
func scanItem(scanner interface {
	Scan(dest ...any) error
}) (*secondary.ItemRecord, error) {
	var (
		rejectReason sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
	)

	record := &secondary.ItemRecord{}
	err := scanner.Scan(
		&record.ID, &record.Title, &record.PayloadRef, &record.CurrentStage,
		&record.State, &rejectReason, &record.Attempt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RejectReason = rejectReason.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

const itemSelectCols = "id, title, payload_ref, current_stage, state, reject_reason, attempt, created_at, updated_at"

// Create persists a new item at stage 0.
func (r *ItemRepository) Create(ctx context.Context, item *secondary.ItemRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO items (id, title, payload_ref, current_stage, state) VALUES (?, ?, ?, 0, 'active')",
		item.ID, item.Title, item.PayloadRef,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its ID.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*secondary.ItemRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+itemSelectCols+" FROM items WHERE id = ?",
		id,
	)

	record, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s: %w", id, secondary.ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return record, nil
}

// List retrieves items matching the given filters.
func (r *ItemRepository) List(ctx context.Context, filters secondary.ItemFilters) ([]*secondary.ItemRecord, error) {
	query := "SELECT " + itemSelectCols + " FROM items WHERE 1=1"
	args := []any{}

	if filters.State != "" {
		query += " AND state = ?"
		args = append(args, filters.State)
	}

	if filters.Stage >= 0 {
		query += " AND current_stage = ?"
		args = append(args, filters.Stage)
	}

	query += " ORDER BY id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*secondary.ItemRecord
	for rows.Next() {
		record, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, record)
	}

	return items, rows.Err()
}

// GetNextID returns the next available item ID.
func (r *ItemRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM items",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next item ID: %w", err)
	}

	return fmt.Sprintf("ITEM-%03d", maxID+1), nil
}

// AdvanceStage atomically moves an item from fromStage to toStage. The
// WHERE clause is the compare-and-swap: it only matches an active item
// still sitting at fromStage, so concurrent advancers cannot double-move.
func (r *ItemRepository) AdvanceStage(ctx context.Context, id string, fromStage, toStage int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET current_stage = ?, attempt = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND current_stage = ? AND state = 'active'",
		toStage, id, fromStage,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check advance result: %w", err)
	}

	return affected == 1, nil
}

// MarkTerminal atomically moves an active item at fromStage into a
// terminal state. Same CAS shape as AdvanceStage.
func (r *ItemRepository) MarkTerminal(ctx context.Context, id string, fromStage int, state, reason string) (bool, error) {
	var rejectReason sql.NullString
	if reason != "" {
		rejectReason = sql.NullString{String: reason, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET state = ?, reject_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND current_stage = ? AND state = 'active'",
		state, rejectReason, id, fromStage,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check close result: %w", err)
	}

	return affected == 1, nil
}

// SetAttempt records the attempt counter for the item's current stage.
func (r *ItemRepository) SetAttempt(ctx context.Context, id string, attempt int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET attempt = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		attempt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check attempt update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", id, secondary.ErrItemNotFound)
	}

	return nil
}

// AppendHistory appends one stage verdict to the item's ordered history.
func (r *ItemRepository) AppendHistory(ctx context.Context, entry *secondary.StageHistoryRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO stage_history (item_id, stage, verdict, rule_applied, confidence) VALUES (?, ?, ?, ?, ?)",
		entry.ItemID, entry.Stage, entry.Verdict, entry.RuleApplied, entry.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to append stage history: %w", err)
	}

	return nil
}

// GetHistory retrieves the item's stage verdicts in recorded order.
func (r *ItemRepository) GetHistory(ctx context.Context, itemID string) ([]*secondary.StageHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, item_id, stage, verdict, rule_applied, confidence, recorded_at FROM stage_history WHERE item_id = ? ORDER BY id",
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.StageHistoryRecord
	for rows.Next() {
		var recordedAt time.Time
		entry := &secondary.StageHistoryRecord{}
		err := rows.Scan(&entry.ID, &entry.ItemID, &entry.Stage, &entry.Verdict, &entry.RuleApplied, &entry.Confidence, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage history: %w", err)
		}
		entry.RecordedAt = recordedAt.Format(time.RFC3339)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
