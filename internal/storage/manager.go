package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thisdougb/tally/internal/config"
	"github.com/thisdougb/tally/internal/errors"
)

// Drift describes a mismatch between the expected table layout and the
// one found on disk. Unreadable is set when the file exists but SQLite
// could not read its layout.
type Drift struct {
	Path       string
	Expected   Layout
	Actual     Layout
	Unreadable error
}

// ConfirmFunc is asked before an existing, incompatible table is
// replaced. Returning false declines the migration.
type ConfirmFunc func(ctx context.Context, drift Drift) bool

// Action records what Reconcile did to the database file.
type Action int

const (
	ActionNone Action = iota
	ActionCreated
	ActionMigrated
)

func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionMigrated:
		return "migrated"
	}
	return "none"
}

// Result is the outcome of Reconcile. BackupPath is set when the previous
// file was copied aside.
type Result struct {
	Action     Action
	BackupPath string
}

// Manager reconciles the durable table with the registry's layout and
// opens the backend rows are written to.
type Manager struct {
	cfg     Config
	confirm ConfirmFunc
	now     func() time.Time
}

// NewManager creates a schema manager. A nil confirm declines every
// migration of an existing table.
func NewManager(cfg Config, confirm ConfirmFunc) *Manager {
	return &Manager{
		cfg:     cfg,
		confirm: confirm,
		now:     time.Now,
	}
}

// Reconcile makes the metrics table match expected. A matching table is
// left alone. Otherwise the existing file, if any, is backed up and
// removed and a new table is created, asking for confirmation first when
// the existing table has columns or the file cannot be read.
func (m *Manager) Reconcile(ctx context.Context, expected Layout) (Result, error) {
	if m.cfg.InMemory() {
		return Result{}, nil
	}
	path := m.cfg.DBPath

	drift := Drift{Path: path, Expected: expected}
	actual, err := ReadLayout(ctx, path)
	if err != nil {
		config.LogWarn(ctx, fmt.Sprintf("unreadable database %s: %v", path, err))
		drift.Unreadable = err
	} else if expected.Equal(actual) {
		config.LogDebug(ctx, fmt.Sprintf("schema of %s is current", path))
		return Result{}, nil
	}
	drift.Actual = actual

	if len(actual) > 0 || drift.Unreadable != nil {
		if len(actual) > 0 {
			config.LogWarn(ctx, fmt.Sprintf("schema drift in %s: found %s, expected %s", path, actual, expected))
		}
		if m.confirm == nil || !m.confirm(ctx, drift) {
			return Result{}, errors.New(errors.CategorySchema, errors.CodeDriftDeclined,
				fmt.Sprintf("migration of %s declined", path))
		}
	}

	result := Result{Action: ActionCreated}

	exists, err := fileExists(path)
	if err != nil {
		return Result{}, errors.Wrap(errors.CategorySchema, errors.CodeMigration, "stat database", err)
	}
	if exists {
		backupPath, err := BackupDatabase(ctx, path, m.now())
		if err != nil {
			return Result{}, errors.Wrap(errors.CategorySchema, errors.CodeMigration, "backup database", err)
		}
		config.LogInfo(ctx, fmt.Sprintf("backed up %s to %s", path, backupPath))

		if err := removeDatabase(path); err != nil {
			return Result{}, errors.Wrap(errors.CategorySchema, errors.CodeMigration, "remove database", err)
		}
		result = Result{Action: ActionMigrated, BackupPath: backupPath}
	}

	if err := m.create(ctx, path, expected); err != nil {
		return Result{}, errors.Wrap(errors.CategorySchema, errors.CodeMigration, "create table", err)
	}
	config.LogInfo(ctx, fmt.Sprintf("created table %s in %s with %d columns", TableName, path, len(expected)))

	if result.Action == ActionMigrated && m.cfg.BackupRetentionDays > 0 {
		removed, err := CleanupBackups(path, m.cfg.BackupRetentionDays, m.now())
		if err != nil {
			// the migration itself succeeded
			config.LogWarn(ctx, fmt.Sprintf("backup cleanup failed: %v", err))
		}
		for _, old := range removed {
			config.LogInfo(ctx, fmt.Sprintf("removed old backup %s", old))
		}
	}

	return result, nil
}

func (m *Manager) create(ctx context.Context, path string, layout Layout) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fileDSN(path, "rwc"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return createTable(ctx, db, layout)
}

// Open reconciles the schema and returns the backend for rows of
// expected. An empty DBPath gives a memory backend.
func (m *Manager) Open(ctx context.Context, expected Layout) (Backend, error) {
	if m.cfg.InMemory() {
		return NewMemoryBackend(expected), nil
	}

	if _, err := m.Reconcile(ctx, expected); err != nil {
		return nil, err
	}

	backend, err := NewSQLiteBackend(ctx, m.cfg.DBPath, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite backend: %w", err)
	}
	return backend, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// removeDatabase deletes the file and any SQLite sidecar files.
func removeDatabase(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, suffix := range sidecarSuffixes {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
