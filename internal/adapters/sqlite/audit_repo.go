package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// AuditLogRepository implements secondary.AuditLogRepository with SQLite.
type AuditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository creates a new SQLite audit log repository.
func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append persists a new audit entry.
func (r *AuditLogRepository) Append(ctx context.Context, entry *secondary.AuditRecord) error {
	var actorID, detail sql.NullString

	if entry.ActorID != "" {
		actorID = sql.NullString{String: entry.ActorID, Valid: true}
	}
	if entry.Detail != "" {
		detail = sql.NullString{String: entry.Detail, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_log (actor_id, entity_type, entity_id, action, detail) VALUES (?, ?, ?, ?, ?)",
		actorID, entry.EntityType, entry.EntityID, entry.Action, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// List retrieves audit entries matching the given filters, newest first.
func (r *AuditLogRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditRecord, error) {
	query := "SELECT id, timestamp, actor_id, entity_type, entity_id, action, detail FROM audit_log WHERE 1=1"
	args := []any{}

	if filters.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filters.EntityType)
	}

	if filters.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filters.EntityID)
	}

	if filters.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filters.ActorID)
	}

	query += " ORDER BY id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.AuditRecord
	for rows.Next() {
		var (
			ts      time.Time
			actorID sql.NullString
			detail  sql.NullString
		)
		entry := &secondary.AuditRecord{}
		err := rows.Scan(&entry.ID, &ts, &actorID, &entry.EntityType, &entry.EntityID, &entry.Action, &detail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Timestamp = ts.Format(time.RFC3339)
		entry.ActorID = actorID.String
		entry.Detail = detail.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// PruneOlderThan deletes entries older than the given number of days.
func (r *AuditLogRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM audit_log WHERE timestamp < datetime('now', '-%d days')", days),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check prune result: %w", err)
	}

	return int(affected), nil
}
