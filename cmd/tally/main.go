// tally collects activity metrics and appends one row per interval to a
// local SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/thisdougb/tally"
	"github.com/thisdougb/tally/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// an optional .env supplies TALLY_* defaults
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}

	args, err := parseArgs(argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if err := args.SanityCheck(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		args.fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = config.SetContextCorrelationId(ctx, "tally")
	if args.debug {
		ctx = config.SetContextDebug(ctx, true)
	}

	if args.restore != "" {
		restored, err := restoreDatabase(args.restore, args.dbPath)
		if err != nil {
			config.LogError(ctx, fmt.Sprintf("restore failed: %v", err))
			return 1
		}
		config.LogInfo(ctx, fmt.Sprintf("restored %s from %s", args.dbPath, restored))
		return 0
	}

	collectors, _ := buildCollectors(args.collectors)

	opts := args.options()
	opts.Confirm = terminalConfirm(os.Stdin, os.Stdout)
	if args.assumeYes {
		opts.Confirm = alwaysConfirm
	}
	opts.OnPersistError = persistErrorPolicy(args.skipFailed)

	engine, err := tally.New(ctx, opts, collectors...)
	if err != nil {
		if errors.Is(err, tally.ErrSchemaDriftDeclined) {
			config.LogError(ctx, "schema migration declined, nothing was changed")
		} else {
			config.LogError(ctx, fmt.Sprintf("startup failed: %v", err))
		}
		return 1
	}
	defer engine.Close()

	config.LogInfo(ctx, fmt.Sprintf("recording to %q every %ds", args.dbPath, args.interval))

	if err := engine.Run(ctx); err != nil {
		config.LogError(ctx, fmt.Sprintf("stopped: %v", err))
		return 1
	}

	config.LogInfo(ctx, "shutdown complete")
	return 0
}

// persistErrorPolicy returns the hook deciding what a failed write does.
func persistErrorPolicy(skip bool) func(context.Context, error) error {
	return func(ctx context.Context, err error) error {
		if !skip {
			return err
		}
		config.LogWarn(ctx, "row not written, values carried into the next interval")
		return nil
	}
}
