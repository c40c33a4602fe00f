package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thisdougb/tally/internal/errors"
	"github.com/thisdougb/tally/internal/metrics"
)

// SQLiteBackend implements Backend interface using SQLite database
type SQLiteBackend struct {
	db      *sql.DB
	layout  Layout
	columns []string
	insert  string
}

// NewSQLiteBackend opens the database at path. The metrics table must
// already match layout, see Manager.Reconcile.
func NewSQLiteBackend(ctx context.Context, path string, layout Layout) (*SQLiteBackend, error) {
	// Open database connection
	db, err := sql.Open("sqlite3", fileDSN(path, "rw"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	actual, err := tableLayout(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !actual.Equal(layout) {
		db.Close()
		return nil, errors.New(errors.CategorySchema, errors.CodeMigration,
			fmt.Sprintf("table layout %s does not match expected %s", actual, layout))
	}

	backend := &SQLiteBackend{
		db:      db,
		layout:  layout,
		columns: layout.MetricColumns(),
	}
	backend.insert = backend.insertQuery()

	return backend, nil
}

func (s *SQLiteBackend) insertQuery() string {
	names := []string{quoteIdent(metrics.TimestampColumn), quoteIdent(metrics.IntervalColumn)}
	for _, c := range s.columns {
		names = append(names, quoteIdent(c))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(TableName), strings.Join(names, ","), placeholders)
}

// WriteRow inserts one row inside a transaction.
func (s *SQLiteBackend) WriteRow(ctx context.Context, row Row) error {
	args, err := rowArgs(s.columns, row)
	if err != nil {
		return err
	}

	// Begin transaction for the insert
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.insert, args...); err != nil {
		return errors.Persistence("failed to insert row", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Persistence("failed to commit row", err)
	}
	return nil
}

// Rows returns every persisted row in insertion order.
func (s *SQLiteBackend) Rows(ctx context.Context) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY rowid ASC", quoteIdent(TableName))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// Close gracefully shuts down the SQLite backend
func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowArgs orders row values by column, failing on any gap.
func rowArgs(columns []string, row Row) ([]any, error) {
	if len(row.Values) != len(columns) {
		return nil, errors.Persistence(
			fmt.Sprintf("row has %d values for %d columns", len(row.Values), len(columns)), nil)
	}

	args := make([]any, 0, len(columns)+2)
	args = append(args, row.Timestamp, row.IntervalSeconds)
	for _, c := range columns {
		v, ok := row.Values[c]
		if !ok {
			return nil, errors.Persistence(fmt.Sprintf("row has no value for column %q", c), nil)
		}
		args = append(args, v)
	}
	return args, nil
}
