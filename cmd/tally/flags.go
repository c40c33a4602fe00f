package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/thisdougb/tally"
	"github.com/thisdougb/tally/internal/config"
)

// Help strings for command line arguments
var (
	intervalHelp   = "Seconds between persisted rows."
	dbPathHelp     = "SQLite database file, empty keeps rows in memory."
	retentionHelp  = "Days to keep migration backups, 0 keeps all."
	assumeYesHelp  = "Confirm schema migrations without prompting."
	skipFailedHelp = "Keep running when a row cannot be written."
	collectorsHelp = "Comma separated collectors: runtime, synthetic."
	debugHelp      = "Enable debug logging."
	restoreHelp    = "Restore db-path from this backup file, or the newest with 'latest', and exit."
)

type arguments struct {
	interval      int
	dbPath        string
	retentionDays int
	assumeYes     bool
	skipFailed    bool
	collectors    string
	debug         bool
	restore       string

	fs *flag.FlagSet
}

func (args *arguments) SanityCheck() error {
	if args.interval < 1 {
		return errors.New("interval must be at least one second")
	}
	if args.retentionDays < 0 {
		return errors.New("backup retention cannot be negative")
	}
	if args.restore != "" && args.dbPath == "" {
		return errors.New("restore needs a db-path")
	}
	if _, err := buildCollectors(args.collectors); err != nil {
		return err
	}
	return nil
}

func (args *arguments) options() tally.Options {
	return tally.Options{
		Interval:            time.Duration(args.interval) * time.Second,
		DBPath:              args.dbPath,
		BackupRetentionDays: args.retentionDays,
	}
}

func parseArgs(argv []string) (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("tally", flag.ContinueOnError)

	fs.IntVar(&args.interval, "interval", config.IntValue("TALLY_INTERVAL"), intervalHelp)
	fs.StringVar(&args.dbPath, "db-path", config.StringValue("TALLY_DB_PATH"), dbPathHelp)
	fs.IntVar(&args.retentionDays, "backup-retention-days",
		config.IntValue("TALLY_BACKUP_RETENTION_DAYS"), retentionHelp)
	fs.BoolVar(&args.assumeYes, "assume-yes", config.BoolValue("TALLY_ASSUME_YES"), assumeYesHelp)
	fs.BoolVar(&args.assumeYes, "yes", config.BoolValue("TALLY_ASSUME_YES"), assumeYesHelp)
	fs.BoolVar(&args.skipFailed, "skip-failed-writes",
		config.BoolValue("TALLY_SKIP_FAILED_WRITES"), skipFailedHelp)
	fs.StringVar(&args.collectors, "collectors", config.StringValue("TALLY_COLLECTORS"), collectorsHelp)
	fs.BoolVar(&args.debug, "debug", config.BoolValue("TALLY_DEBUG"), debugHelp)
	fs.StringVar(&args.restore, "restore", "", restoreHelp)

	args.fs = fs

	err := ff.Parse(fs, argv,
		ff.WithEnvVarPrefix("TALLY"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	return &args, err
}

// buildCollectors maps collector names to the built-in collectors.
func buildCollectors(names string) ([]tally.Collector, error) {
	var collectors []tally.Collector
	seen := make(map[string]bool)

	for _, name := range strings.Split(names, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "runtime":
			collectors = append(collectors, tally.NewRuntimeCollector())
		case "synthetic":
			collectors = append(collectors, tally.NewSyntheticCollector())
		default:
			return nil, fmt.Errorf("unknown collector %q", name)
		}
	}

	if len(collectors) == 0 {
		return nil, errors.New("no collectors selected")
	}
	return collectors, nil
}
