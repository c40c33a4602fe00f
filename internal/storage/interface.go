package storage

import "context"

// TableName is the single table rows are appended to.
const TableName = "metrics"

// Backend defines the interface for all storage implementations
type Backend interface {
	WriteRow(ctx context.Context, row Row) error
	Rows(ctx context.Context) ([]map[string]any, error)
	Close() error
}

// Row is one persisted interval. Values holds a storage-encoded value for
// every metric column of the backend's layout.
type Row struct {
	Timestamp       string
	IntervalSeconds int64
	Values          map[string]any
}
