// Package sqlite_test contains integration tests for SQLite repositories.
//
// This file is the single point where the database schema is loaded for
// tests. All test setup uses db.GetSchemaSQL() so tests run against the
// authoritative schema, preventing drift between test and production.
// Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/gauntlet/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedItem inserts a test item and returns its ID.
func seedItem(t *testing.T, db *sql.DB, id string, stage int) string {
	t.Helper()
	if id == "" {
		id = "ITEM-001"
	}
	_, err := db.Exec(
		"INSERT INTO items (id, title, payload_ref, current_stage, state) VALUES (?, ?, ?, ?, 'active')",
		id, "Test Item", "papers/test.pdf", stage,
	)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
	return id
}

// seedClaim inserts a test claim and returns its token.
func seedClaim(t *testing.T, db *sql.DB, token, itemID string, stage int, role, status, heartbeat string) string {
	t.Helper()
	if token == "" {
		token = "SLOT-001"
	}
	_, err := db.Exec(
		"INSERT INTO claims (token, item_id, stage, role, agent_id, status, last_heartbeat) VALUES (?, ?, ?, ?, 'AGENT-test-01', ?, datetime(?))",
		token, itemID, stage, role, status, heartbeat,
	)
	if err != nil {
		t.Fatalf("failed to seed claim: %v", err)
	}
	return token
}
