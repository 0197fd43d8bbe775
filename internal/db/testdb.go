package db

import (
	"database/sql"
	"testing"
)

// NewTestDB opens a fresh in-memory database with the full schema for one
// test. Open's pragmas apply, so foreign keys are on and cascade deletes
// behave as in production. The handle is closed when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	return database
}
