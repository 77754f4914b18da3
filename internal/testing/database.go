// Package testing carries shared test helpers for the record cache.
package testing

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// CreateTestDB opens an in-memory SQLite database with the same pragma
// profile the record cache uses on disk, minus WAL, which has no
// meaning for :memory:. Closed automatically via t.Cleanup.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to apply %s: %v", pragma, err)
		}
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
