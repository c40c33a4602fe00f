package storage

// Config holds the storage options supplied by the caller
type Config struct {
	// DBPath is the SQLite file, empty keeps rows in memory
	DBPath string

	// BackupRetentionDays removes migration backups older than this many
	// days after each migration, 0 keeps every backup
	BackupRetentionDays int
}

// DefaultConfig returns an in-memory configuration, mostly for testing
func DefaultConfig() Config {
	return Config{}
}

// InMemory reports whether rows are kept in memory rather than on disk
func (c Config) InMemory() bool {
	return c.DBPath == ""
}
