package storage

import (
	"context"
	"sync"

	"github.com/thisdougb/tally/internal/metrics"
)

// MemoryBackend implements Backend interface using in-memory storage.
// Rows live for the lifetime of the backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	columns []string
	rows    []map[string]any
}

// NewMemoryBackend creates a new in-memory storage backend for layout.
func NewMemoryBackend(layout Layout) *MemoryBackend {
	return &MemoryBackend{
		columns: layout.MetricColumns(),
		rows:    make([]map[string]any, 0),
	}
}

// WriteRow appends the row, applying the same column checks as SQLite.
func (m *MemoryBackend) WriteRow(ctx context.Context, row Row) error {
	args, err := rowArgs(m.columns, row)
	if err != nil {
		return err
	}

	stored := make(map[string]any, len(args))
	stored[metrics.TimestampColumn] = args[0]
	stored[metrics.IntervalColumn] = args[1]
	for i, c := range m.columns {
		stored[c] = args[i+2]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, stored)
	return nil
}

// Rows returns copies of the stored rows in insertion order.
func (m *MemoryBackend) Rows(ctx context.Context) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]map[string]any, len(m.rows))
	for i, row := range m.rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
