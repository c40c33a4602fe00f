package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/thisdougb/tally/internal/metrics"
)

func testLayout(t *testing.T, defs ...metrics.Definition) Layout {
	t.Helper()

	r, err := metrics.NewRegistry(context.Background(), metrics.DeclaredSet(defs))
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	layout, err := ExpectedLayout(r)
	if err != nil {
		t.Fatalf("Failed to compute layout: %v", err)
	}
	return layout
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "activity.db")
}

// seedDatabase creates a database at path with a hand written table and rows.
func seedDatabase(t *testing.T, path, createSQL string, inserts ...string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(createSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for _, stmt := range inserts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM metrics").Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
