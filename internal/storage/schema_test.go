package storage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thisdougb/tally/internal/metrics"
)

func TestExpectedLayout(t *testing.T) {
	layout := testLayout(t,
		metrics.Definition{Name: "keys.total", Default: metrics.Int(0)},
		metrics.Definition{Name: "cpu.load", Default: metrics.Float(0)},
		metrics.Definition{Name: "screen.locked", Default: metrics.Bool(false)},
		metrics.Definition{Name: "app.focused", Default: metrics.Text("")},
		metrics.Definition{Name: "app.switches", Default: metrics.List()},
	)

	want := Layout{
		{Name: "timestamp", Type: "TEXT"},
		{Name: "interval_seconds", Type: "INTEGER"},
		{Name: "keys.total", Type: "INTEGER"},
		{Name: "cpu.load", Type: "REAL"},
		{Name: "screen.locked", Type: "BOOLEAN"},
		{Name: "app.focused", Type: "TEXT"},
		{Name: "app.switches", Type: "TEXT"},
	}
	if diff := cmp.Diff(want, layout); diff != "" {
		t.Errorf("ExpectedLayout mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"keys.total", "cpu.load", "screen.locked", "app.focused", "app.switches"},
		layout.MetricColumns()); diff != "" {
		t.Errorf("MetricColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutEqual(t *testing.T) {
	a := Layout{{Name: "timestamp", Type: "TEXT"}, {Name: "a", Type: "INTEGER"}}

	tests := []struct {
		name  string
		other Layout
		want  bool
	}{
		{"same", Layout{{Name: "timestamp", Type: "TEXT"}, {Name: "a", Type: "INTEGER"}}, true},
		{"reordered", Layout{{Name: "a", Type: "INTEGER"}, {Name: "timestamp", Type: "TEXT"}}, true},
		{"type case", Layout{{Name: "timestamp", Type: "text"}, {Name: "a", Type: "integer"}}, true},
		{"type changed", Layout{{Name: "timestamp", Type: "TEXT"}, {Name: "a", Type: "TEXT"}}, false},
		{"renamed", Layout{{Name: "timestamp", Type: "TEXT"}, {Name: "b", Type: "INTEGER"}}, false},
		{"extra column", Layout{{Name: "timestamp", Type: "TEXT"}, {Name: "a", Type: "INTEGER"}, {Name: "b", Type: "INTEGER"}}, false},
		{"empty", Layout{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadLayout_MissingFile(t *testing.T) {
	path := tempDBPath(t)

	layout, err := ReadLayout(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}
	if len(layout) != 0 {
		t.Errorf("Expected empty layout, got %s", layout)
	}
	if exists, _ := fileExists(path); exists {
		t.Errorf("ReadLayout must not create %s", path)
	}
}

func TestReadLayout_ExistingTable(t *testing.T) {
	path := tempDBPath(t)
	seedDatabase(t, path, `CREATE TABLE metrics (timestamp TEXT NOT NULL, interval_seconds INTEGER NOT NULL, "a" integer NOT NULL)`)

	layout, err := ReadLayout(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}

	want := Layout{
		{Name: "timestamp", Type: "TEXT"},
		{Name: "interval_seconds", Type: "INTEGER"},
		{Name: "a", Type: "INTEGER"},
	}
	if diff := cmp.Diff(want, layout); diff != "" {
		t.Errorf("ReadLayout mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLayout_NoTable(t *testing.T) {
	path := tempDBPath(t)
	seedDatabase(t, path, `CREATE TABLE other (x INTEGER)`)

	layout, err := ReadLayout(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}
	if len(layout) != 0 {
		t.Errorf("Expected empty layout, got %s", layout)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`mouse."clicks"`); got != `"mouse.""clicks"""` {
		t.Errorf("quoteIdent = %s", got)
	}
}
