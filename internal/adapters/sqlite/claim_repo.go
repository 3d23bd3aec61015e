package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// ClaimRepository implements secondary.ClaimRepository with SQLite.
//
// Timestamps flow in as RFC3339 strings and are normalized with
// datetime() on write, so comparisons against stored values stay
// consistent regardless of the caller's formatting.
type ClaimRepository struct {
	db *sql.DB
}

// NewClaimRepository creates a new SQLite claim repository.
func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// scanClaim scans a claim row into a ClaimRecord.
func scanClaim(scanner interface {
	Scan(dest ...any) error
}) (*secondary.ClaimRecord, error) {
	var (
		claimedAt     time.Time
		lastHeartbeat time.Time
	)

	record := &secondary.ClaimRecord{}
	err := scanner.Scan(
		&record.Token, &record.ItemID, &record.Stage, &record.Role,
		&record.AgentID, &record.Status, &claimedAt, &lastHeartbeat,
	)
	if err != nil {
		return nil, err
	}

	record.ClaimedAt = claimedAt.Format(time.RFC3339)
	record.LastHeartbeat = lastHeartbeat.Format(time.RFC3339)

	return record, nil
}

const claimSelectCols = "token, item_id, stage, role, agent_id, status, claimed_at, last_heartbeat"

// Insert creates an active claim if and only if the slot is free. The
// conditional INSERT and the partial unique index on active slots together
// make this safe across processes: a racing loser either inserts zero rows
// or trips the index, never wins silently.
func (r *ClaimRepository) Insert(ctx context.Context, claim *secondary.ClaimRecord) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO claims (token, item_id, stage, role, agent_id, status, claimed_at, last_heartbeat)
		 SELECT ?, ?, ?, ?, ?, 'active', datetime(?), datetime(?)
		 WHERE NOT EXISTS (
			SELECT 1 FROM claims WHERE item_id = ? AND stage = ? AND role = ? AND status = 'active'
		 )`,
		claim.Token, claim.ItemID, claim.Stage, claim.Role, claim.AgentID,
		claim.ClaimedAt, claim.LastHeartbeat,
		claim.ItemID, claim.Stage, claim.Role,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim insert: %w", err)
	}

	return affected == 1, nil
}

// GetByToken retrieves a claim by its slot token.
func (r *ClaimRepository) GetByToken(ctx context.Context, token string) (*secondary.ClaimRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+claimSelectCols+" FROM claims WHERE token = ?",
		token,
	)

	record, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("claim %s not found", token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return record, nil
}

// Heartbeat renews an active claim's liveness timestamp.
func (r *ClaimRepository) Heartbeat(ctx context.Context, token, now string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE claims SET last_heartbeat = datetime(?) WHERE token = ? AND status = 'active'",
		now, token,
	)
	if err != nil {
		return false, fmt.Errorf("failed to heartbeat claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check heartbeat: %w", err)
	}

	return affected == 1, nil
}

// Release moves an active claim to released.
func (r *ClaimRepository) Release(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE claims SET status = 'released' WHERE token = ? AND status = 'active'",
		token,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check release: %w", err)
	}

	return affected == 1, nil
}

// Expire moves an active claim to expired, but only while the heartbeat
// still matches the one the monitor observed. A renewal that lands in
// between changes the timestamp and wins the race.
func (r *ClaimRepository) Expire(ctx context.Context, token, observedHeartbeat string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE claims SET status = 'expired' WHERE token = ? AND status = 'active' AND last_heartbeat = datetime(?)",
		token, observedHeartbeat,
	)
	if err != nil {
		return false, fmt.Errorf("failed to expire claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check expire: %w", err)
	}

	return affected == 1, nil
}

// ListStale retrieves active claims whose last heartbeat is strictly
// older than the cutoff.
func (r *ClaimRepository) ListStale(ctx context.Context, cutoff string) ([]*secondary.ClaimRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+claimSelectCols+" FROM claims WHERE status = 'active' AND last_heartbeat < datetime(?)",
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale claims: %w", err)
	}
	defer rows.Close()

	var claims []*secondary.ClaimRecord
	for rows.Next() {
		record, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, record)
	}

	return claims, rows.Err()
}

// ActiveRoles retrieves the roles currently held for an item/stage.
func (r *ClaimRepository) ActiveRoles(ctx context.Context, itemID string, stage int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT role FROM claims WHERE item_id = ? AND stage = ? AND status = 'active' ORDER BY role",
		itemID, stage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// List retrieves claims matching the given filters.
func (r *ClaimRepository) List(ctx context.Context, filters secondary.ClaimFilters) ([]*secondary.ClaimRecord, error) {
	query := "SELECT " + claimSelectCols + " FROM claims WHERE 1=1"
	args := []any{}

	if filters.ItemID != "" {
		query += " AND item_id = ?"
		args = append(args, filters.ItemID)
	}

	if filters.Stage >= 0 {
		query += " AND stage = ?"
		args = append(args, filters.Stage)
	}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY claimed_at"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*secondary.ClaimRecord
	for rows.Next() {
		record, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, record)
	}

	return claims, rows.Err()
}
