package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupTimeFormat is the suffix layout of <db>.bak.<YYYYMMDD_HHMMSS>
const backupTimeFormat = "20060102_150405"

// BackupPath returns the backup file name for dbPath at time t.
func BackupPath(dbPath string, t time.Time) string {
	return dbPath + ".bak." + t.Format(backupTimeFormat)
}

// BackupDatabase writes a consistent copy of the database to its
// timestamped backup path with VACUUM INTO, which first recovers any
// committed rows still held in a WAL or hot journal. A file SQLite cannot
// read is copied byte for byte together with its sidecar files. The backup
// keeps the source's file mode and modification time. An existing backup
// is never overwritten; a numeric suffix is added instead.
func BackupDatabase(ctx context.Context, dbPath string, now time.Time) (string, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat database: %w", err)
	}

	base := BackupPath(dbPath, now)
	backupPath := base
	for i := 1; ; i++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = fmt.Sprintf("%s_%d", base, i)
	}

	if err := vacuumInto(ctx, dbPath, backupPath); err != nil {
		os.Remove(backupPath)
		if err := copyRaw(dbPath, backupPath); err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}
		return backupPath, nil
	}

	if err := os.Chmod(backupPath, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to set backup mode: %w", err)
	}
	if err := os.Chtimes(backupPath, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("failed to set backup time: %w", err)
	}
	return backupPath, nil
}

func vacuumInto(ctx context.Context, dbPath, backupPath string) error {
	db, err := sql.Open("sqlite3", fileDSN(dbPath, "rw"))
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, "VACUUM INTO ?", backupPath)
	return err
}

// copyRaw copies the database file and any sidecars next to backupPath.
func copyRaw(dbPath, backupPath string) error {
	if err := copyFile(dbPath, backupPath); err != nil {
		return err
	}
	for _, suffix := range sidecarSuffixes {
		if _, err := os.Stat(dbPath + suffix); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(dbPath+suffix, backupPath+suffix); err != nil {
			return err
		}
	}
	return nil
}

// ListBackups returns the backups of dbPath, oldest first.
func ListBackups(dbPath string) ([]string, error) {
	dir := filepath.Dir(dbPath)
	prefix := filepath.Base(dbPath) + ".bak."

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []string{}
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		if _, ok := backupTime(file.Name(), prefix); !ok {
			continue
		}
		backups = append(backups, filepath.Join(dir, file.Name()))
	}

	// the timestamp suffix sorts chronologically
	sort.Strings(backups)
	return backups, nil
}

// CleanupBackups removes backups of dbPath older than retentionDays and
// returns the removed paths. A retention of zero or less keeps everything.
func CleanupBackups(dbPath string, retentionDays int, now time.Time) ([]string, error) {
	if retentionDays <= 0 {
		return nil, nil
	}

	backups, err := ListBackups(dbPath)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	prefix := filepath.Base(dbPath) + ".bak."

	var removed []string
	for _, path := range backups {
		t, _ := backupTime(filepath.Base(path), prefix)
		if t.After(cutoff) {
			continue
		}
		if err := removeDatabase(path); err != nil {
			return removed, fmt.Errorf("failed to remove old backup %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// RestoreBackup copies a backup over dbPath, replacing the sidecar files
// of dbPath with those of the backup. Any open backend on dbPath must be
// closed first.
func RestoreBackup(backupPath, dbPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	tmp := dbPath + ".restore"
	if err := copyFile(backupPath, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to restore database: %w", err)
	}

	// a WAL left by the replaced file would be replayed into the backup
	for _, suffix := range sidecarSuffixes {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			os.Remove(tmp)
			return fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
		if _, err := os.Stat(backupPath + suffix); err != nil {
			continue
		}
		if err := copyFile(backupPath+suffix, dbPath+suffix); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to restore database: %w", err)
		}
	}

	if err := os.Rename(tmp, dbPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

func backupTime(name, prefix string) (time.Time, bool) {
	suffix := strings.TrimPrefix(name, prefix)
	if len(suffix) < len(backupTimeFormat) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(backupTimeFormat, suffix[:len(backupTimeFormat)], time.Local)
	if err != nil {
		return time.Time{}, false
	}

	// only "" or a _N collision counter may follow, which skips sidecars
	rest := suffix[len(backupTimeFormat):]
	if rest == "" {
		return t, true
	}
	if len(rest) < 2 || rest[0] != '_' {
		return time.Time{}, false
	}
	for _, r := range rest[1:] {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	return t, true
}

// copyFile copies src to a new file dst with the same mode and mtime
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Sync(); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
