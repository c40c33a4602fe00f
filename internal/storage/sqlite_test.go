package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	tallyerrors "github.com/thisdougb/tally/internal/errors"
	"github.com/thisdougb/tally/internal/metrics"
)

func setupTestSQLiteBackend(t *testing.T) (*SQLiteBackend, string) {
	t.Helper()

	ctx := context.Background()
	path := tempDBPath(t)
	layout := testLayout(t,
		metrics.Definition{Name: "a", Default: metrics.Int(0)},
		metrics.Definition{Name: "load", Default: metrics.Float(0)},
		metrics.Definition{Name: "locked", Default: metrics.Bool(false)},
		metrics.Definition{Name: "b.events", Default: metrics.List()},
	)

	if _, err := NewManager(Config{DBPath: path}, nil).Reconcile(ctx, layout); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	backend, err := NewSQLiteBackend(ctx, path, layout)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend, path
}

func TestSQLiteBackend_WriteAndReadRows(t *testing.T) {
	ctx := context.Background()
	backend, path := setupTestSQLiteBackend(t)

	rows := []Row{
		{
			Timestamp:       "2024-03-09T14:00:00Z",
			IntervalSeconds: 5,
			Values:          map[string]any{"a": int64(3), "load": 0.25, "locked": true, "b.events": `[{"app":"term"}]`},
		},
		{
			Timestamp:       "2024-03-09T14:00:05Z",
			IntervalSeconds: 5,
			Values:          map[string]any{"a": int64(0), "load": 0.0, "locked": false, "b.events": `[]`},
		},
	}
	for _, row := range rows {
		if err := backend.WriteRow(ctx, row); err != nil {
			t.Fatalf("WriteRow failed: %v", err)
		}
	}

	got, err := backend.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}

	first := got[0]
	if first["timestamp"] != "2024-03-09T14:00:00Z" {
		t.Errorf("timestamp = %v", first["timestamp"])
	}
	if first["interval_seconds"] != int64(5) {
		t.Errorf("interval_seconds = %v", first["interval_seconds"])
	}
	if first["a"] != int64(3) {
		t.Errorf("a = %v", first["a"])
	}
	if first["load"] != 0.25 {
		t.Errorf("load = %v", first["load"])
	}
	if first["locked"] != true {
		t.Errorf("locked = %v", first["locked"])
	}
	if first["b.events"] != `[{"app":"term"}]` {
		t.Errorf("b.events = %v", first["b.events"])
	}

	if n := countRows(t, path); n != 2 {
		t.Errorf("Expected 2 rows on disk, got %d", n)
	}
}

func TestSQLiteBackend_RejectsIncompleteRow(t *testing.T) {
	ctx := context.Background()
	backend, path := setupTestSQLiteBackend(t)

	err := backend.WriteRow(ctx, Row{
		Timestamp:       "2024-03-09T14:00:00Z",
		IntervalSeconds: 5,
		Values:          map[string]any{"a": int64(1)},
	})
	if !errors.Is(err, tallyerrors.ErrPersistence) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if n := countRows(t, path); n != 0 {
		t.Errorf("Partial row written")
	}
}

func TestSQLiteBackend_RejectsNull(t *testing.T) {
	ctx := context.Background()
	backend, path := setupTestSQLiteBackend(t)

	err := backend.WriteRow(ctx, Row{
		Timestamp:       "2024-03-09T14:00:00Z",
		IntervalSeconds: 5,
		Values:          map[string]any{"a": nil, "load": 0.0, "locked": false, "b.events": "[]"},
	})
	if !errors.Is(err, tallyerrors.ErrPersistence) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if n := countRows(t, path); n != 0 {
		t.Errorf("Row with NULL written")
	}
}

func TestSQLiteBackend_LayoutMismatch(t *testing.T) {
	ctx := context.Background()
	_, path := setupTestSQLiteBackend(t)

	other := testLayout(t, metrics.Definition{Name: "z", Default: metrics.Int(0)})
	if _, err := NewSQLiteBackend(ctx, path, other); err == nil {
		t.Fatal("Expected error opening backend with a different layout")
	}
}

func TestSQLiteBackend_ClosedWriteFails(t *testing.T) {
	ctx := context.Background()
	backend, _ := setupTestSQLiteBackend(t)
	backend.Close()

	err := backend.WriteRow(ctx, Row{
		Timestamp:       "2024-03-09T14:00:00Z",
		IntervalSeconds: 5,
		Values:          map[string]any{"a": int64(1), "load": 0.0, "locked": false, "b.events": "[]"},
	})
	if !errors.Is(err, tallyerrors.ErrPersistence) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
}

func TestMemoryBackend_WriteAndReadRows(t *testing.T) {
	ctx := context.Background()
	layout := testLayout(t, metrics.Definition{Name: "a", Default: metrics.Int(0)})
	backend := NewMemoryBackend(layout)

	row := Row{Timestamp: "2024-03-09T14:00:00Z", IntervalSeconds: 5, Values: map[string]any{"a": int64(3)}}
	if err := backend.WriteRow(ctx, row); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}
	if err := backend.WriteRow(ctx, Row{Timestamp: "x", IntervalSeconds: 5, Values: map[string]any{}}); err == nil {
		t.Error("Expected error for incomplete row")
	}

	got, err := backend.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	want := []map[string]any{
		{"timestamp": "2024-03-09T14:00:00Z", "interval_seconds": int64(5), "a": int64(3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}

	got[0]["a"] = int64(99)
	again, _ := backend.Rows(ctx)
	if again[0]["a"] != int64(3) {
		t.Errorf("Rows returned shared maps")
	}
}
