package main

import (
	"fmt"

	"github.com/thisdougb/tally"
)

// restoreDatabase copies backup over dbPath and returns the file used.
// "latest" picks the newest backup of dbPath.
func restoreDatabase(backup, dbPath string) (string, error) {
	if backup == "latest" {
		backups, err := tally.ListBackups(dbPath)
		if err != nil {
			return "", err
		}
		if len(backups) == 0 {
			return "", fmt.Errorf("no backups of %s", dbPath)
		}
		backup = backups[len(backups)-1]
	}

	if err := tally.RestoreBackup(backup, dbPath); err != nil {
		return "", err
	}
	return backup, nil
}
