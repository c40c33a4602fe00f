package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thisdougb/tally/internal/config"
	tallyerrors "github.com/thisdougb/tally/internal/errors"
	"github.com/thisdougb/tally/internal/metrics"
	"github.com/thisdougb/tally/internal/storage"
)

// RunIDKey is the metadata key holding the engine's run id.
const RunIDKey = "tally.run_id"

// Collector declares its metrics up front and, once started, mutates the
// store from its own goroutines. Start must return promptly and stop its
// goroutines when ctx is done.
type Collector interface {
	metrics.Declarer
	Start(ctx context.Context, store *metrics.Store) error
}

// Options configure an Engine.
type Options struct {
	// Interval between persisted rows, a whole number of seconds
	Interval time.Duration

	// DBPath is the SQLite file, empty keeps rows in memory
	DBPath string

	// BackupRetentionDays removes older migration backups, 0 keeps all
	BackupRetentionDays int

	// Confirm is asked before an incompatible table is replaced
	Confirm storage.ConfirmFunc

	// OnPersistError decides what Run does after a failed write. Returning
	// nil skips the interval and keeps the unflushed values, returning an
	// error stops Run with it. When nil, Run stops on the first failure.
	OnPersistError func(ctx context.Context, err error) error
}

func (o Options) validate() error {
	if o.Interval < time.Second || o.Interval%time.Second != 0 {
		return tallyerrors.Configuration(tallyerrors.CodeInvalidOption,
			"interval %s is not a positive whole number of seconds", o.Interval)
	}
	if o.BackupRetentionDays < 0 {
		return tallyerrors.Configuration(tallyerrors.CodeInvalidOption,
			"backup retention %d days is negative", o.BackupRetentionDays)
	}
	return nil
}

// Engine owns the registry, store and backend for one run.
type Engine struct {
	opts       Options
	runID      string
	collectors []Collector
	registry   *metrics.Registry
	store      *metrics.Store
	backend    storage.Backend

	flushMu sync.Mutex
	missed  int64 // failed cycles since the last committed row
	state   stateHolder
	now     func() time.Time
}

// New builds the registry from the collectors, reconciles storage with it
// and opens the backend. Nothing is started until Run.
func New(ctx context.Context, opts Options, collectors ...Collector) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	declarers := make([]metrics.Declarer, len(collectors))
	for i, c := range collectors {
		declarers[i] = c
	}
	registry, err := metrics.NewRegistry(ctx, declarers...)
	if err != nil {
		return nil, err
	}

	layout, err := storage.ExpectedLayout(registry)
	if err != nil {
		return nil, err
	}

	manager := storage.NewManager(storage.Config{
		DBPath:              opts.DBPath,
		BackupRetentionDays: opts.BackupRetentionDays,
	}, opts.Confirm)

	backend, err := manager.Open(ctx, layout)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:       opts,
		runID:      uuid.NewString(),
		collectors: collectors,
		registry:   registry,
		store:      metrics.NewStore(registry),
		backend:    backend,
		now:        time.Now,
	}
	e.reset()

	config.LogInfo(ctx, fmt.Sprintf("engine %s ready with %d metrics, interval %s", e.runID, registry.Len(), opts.Interval))
	return e, nil
}

func (e *Engine) Registry() *metrics.Registry { return e.registry }
func (e *Engine) Store() *metrics.Store       { return e.store }
func (e *Engine) Backend() storage.Backend    { return e.backend }
func (e *Engine) RunID() string               { return e.runID }
func (e *Engine) State() PersisterState       { return e.state.load() }

// Snapshot returns the current interval's values without resetting them.
func (e *Engine) Snapshot() metrics.Snapshot {
	return e.store.Snapshot()
}

// Run starts every collector and then persists one row per interval until
// ctx is cancelled. A cycle already flushing when ctx is cancelled
// finishes its write first. Collectors are stopped when Run returns, also
// when it returns an error.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := e.startCollectors(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			config.LogInfo(ctx, "persister stopped")
			return nil
		case <-ticker.C:
			if err := e.Flush(ctx); err != nil {
				if herr := e.handleFlushError(ctx, err); herr != nil {
					return herr
				}
			}
		}
	}
}

func (e *Engine) startCollectors(ctx context.Context) error {
	var g errgroup.Group
	for _, c := range e.collectors {
		g.Go(func() error {
			cctx := config.AppendToContextCorrelationId(ctx, collectorName(c))
			if err := c.Start(cctx, e.store); err != nil {
				return tallyerrors.Wrap(tallyerrors.CategoryCollector, tallyerrors.CodeStartFailed,
					fmt.Sprintf("start collector %s", collectorName(c)), err)
			}
			config.LogInfo(cctx, fmt.Sprintf("collector %s started", collectorName(c)))
			return nil
		})
	}
	return g.Wait()
}

// collectorName is the collector's type name without package or pointer.
func collectorName(c Collector) string {
	name := fmt.Sprintf("%T", c)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// handleFlushError returns nil when the run should continue.
func (e *Engine) handleFlushError(ctx context.Context, err error) error {
	// a value outside its declared kind is a collector bug
	if tallyerrors.GetCategory(err) == tallyerrors.CategorySerialization {
		return err
	}
	if e.opts.OnPersistError == nil {
		return err
	}
	return e.opts.OnPersistError(ctx, err)
}

// Close releases the backend. Collectors stop with the context passed to Run.
func (e *Engine) Close() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	return e.backend.Close()
}

// reset clears the store for the next interval. Reset drops all
// metadata, so the run id is written again.
func (e *Engine) reset() {
	e.missed = 0
	e.store.Reset()
	e.store.Update(func(tx *metrics.Tx) error {
		tx.SetMetadata(RunIDKey, e.runID)
		return nil
	})
}
