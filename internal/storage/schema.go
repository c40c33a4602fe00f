package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/thisdougb/tally/internal/metrics"
)

// Column is one column of the metrics table.
type Column struct {
	Name string
	Type string
}

// Layout is the ordered column set of the metrics table.
type Layout []Column

// ExpectedLayout returns the fixed columns followed by one column per
// registered metric, typed by its kind.
func ExpectedLayout(r *metrics.Registry) (Layout, error) {
	layout := Layout{
		{Name: metrics.TimestampColumn, Type: "TEXT"},
		{Name: metrics.IntervalColumn, Type: "INTEGER"},
	}
	for _, def := range r.Definitions() {
		storageType, err := def.Kind().StorageType()
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		layout = append(layout, Column{Name: def.Name, Type: storageType})
	}
	return layout, nil
}

// Map returns the layout as column name to upper-cased type.
func (l Layout) Map() map[string]string {
	m := make(map[string]string, len(l))
	for _, c := range l {
		m[c.Name] = strings.ToUpper(c.Type)
	}
	return m
}

// Equal compares two layouts by column name and type, ignoring order.
func (l Layout) Equal(o Layout) bool {
	if len(l) != len(o) {
		return false
	}
	om := o.Map()
	for name, typ := range l.Map() {
		if other, ok := om[name]; !ok || other != typ {
			return false
		}
	}
	return len(l.Map()) == len(om)
}

// MetricColumns returns the column names after the two fixed columns.
func (l Layout) MetricColumns() []string {
	var names []string
	for _, c := range l {
		if c.Name == metrics.TimestampColumn || c.Name == metrics.IntervalColumn {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func (l Layout) String() string {
	if len(l) == 0 {
		return "(none)"
	}
	m := l.Map()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + m[name]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ReadLayout introspects the metrics table in the database at path. A
// missing file or table gives an empty layout, and the file is never
// created. A file that is not a readable database is an error.
func ReadLayout(ctx context.Context, path string) (Layout, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Layout{}, nil
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	// read-write so a leftover WAL or hot journal is recovered first
	db, err := sql.Open("sqlite3", fileDSN(path, "rw"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return tableLayout(ctx, db)
}

func tableLayout(ctx context.Context, db *sql.DB) (Layout, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(TableName)))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	layout := Layout{}
	for rows.Next() {
		// cid, name, type, notnull, dflt_value, pk
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		layout = append(layout, Column{Name: name, Type: strings.ToUpper(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table info: %w", err)
	}
	return layout, nil
}

// createTable creates the metrics table with exactly the given columns,
// all NOT NULL.
func createTable(ctx context.Context, db *sql.DB, layout Layout) error {
	defs := make([]string, len(layout))
	for i, c := range layout {
		defs[i] = fmt.Sprintf("%s %s NOT NULL", quoteIdent(c.Name), c.Type)
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableName), strings.Join(defs, ", "))

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileDSN builds a SQLite URI for path. mode is ro, rw or rwc.
func fileDSN(path, mode string) string {
	return "file:" + uriEscaper.Replace(path) + "?mode=" + mode
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
