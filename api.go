package tally

import (
	"context"

	"github.com/thisdougb/tally/internal/collectors"
	"github.com/thisdougb/tally/internal/core"
	"github.com/thisdougb/tally/internal/errors"
	"github.com/thisdougb/tally/internal/metrics"
	"github.com/thisdougb/tally/internal/storage"
)

type (
	Collector      = core.Collector
	Options        = core.Options
	PersisterState = core.PersisterState

	Kind       = metrics.Kind
	Value      = metrics.Value
	Definition = metrics.Definition
	Store      = metrics.Store
	Tx         = metrics.Tx
	Event      = metrics.Event
	Snapshot   = metrics.Snapshot

	ConfirmFunc = storage.ConfirmFunc
	Drift       = storage.Drift
	Layout      = storage.Layout
)

const (
	KindInteger    = metrics.KindInteger
	KindFloat      = metrics.KindFloat
	KindBoolean    = metrics.KindBoolean
	KindText       = metrics.KindText
	KindStructured = metrics.KindStructured

	Idle     = core.Idle
	Flushing = core.Flushing
)

// Errors for matching with errors.Is.
var (
	ErrConfiguration       = errors.ErrConfiguration
	ErrSchemaDriftDeclined = errors.ErrSchemaDriftDeclined
	ErrPersistence         = errors.ErrPersistence
	ErrSerialization       = errors.ErrSerialization
	ErrUnknownMetric       = errors.ErrUnknownMetric
	ErrKindMismatch        = errors.ErrKindMismatch
)

// Value constructors.
var (
	Int     = metrics.Int
	Float   = metrics.Float
	Bool    = metrics.Bool
	Text    = metrics.Text
	List    = metrics.List
	Map     = metrics.Map
	ValueOf = metrics.ValueOf

	Define   = metrics.Define
	Counters = metrics.Counters
)

// Built-in collectors.
var (
	NewRuntimeCollector   = collectors.NewRuntime
	NewSyntheticCollector = collectors.NewSynthetic
)

// Migration backups. Restore with no engine open on the database.
var (
	ListBackups   = storage.ListBackups
	RestoreBackup = storage.RestoreBackup
)

// Engine is the public handle on a configured metric engine
type Engine struct {
	impl *core.Engine
}

// New builds the metric registry from the collectors, reconciles the
// database with it and opens storage. Collectors are not started until Run.
func New(ctx context.Context, opts Options, collectors ...Collector) (*Engine, error) {
	impl, err := core.New(ctx, opts, collectors...)
	if err != nil {
		return nil, err
	}
	return &Engine{impl: impl}, nil
}

// Run starts the collectors and persists one row per interval until ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.impl.Run(ctx)
}

// Flush persists the current interval immediately and resets the store.
func (e *Engine) Flush(ctx context.Context) error {
	return e.impl.Flush(ctx)
}

// Snapshot returns the current interval's values.
func (e *Engine) Snapshot() Snapshot {
	return e.impl.Snapshot()
}

// Dump returns the current interval's values as indented JSON.
func (e *Engine) Dump() (string, error) {
	return e.impl.Snapshot().Dump()
}

// Rows returns the rows persisted so far, oldest first.
func (e *Engine) Rows(ctx context.Context) ([]map[string]any, error) {
	return e.impl.Backend().Rows(ctx)
}

// Store is the store collectors mutate.
func (e *Engine) Store() *Store {
	return e.impl.Store()
}

// Definitions returns the merged metric definitions in column order.
func (e *Engine) Definitions() []Definition {
	return e.impl.Registry().Definitions()
}

func (e *Engine) RunID() string         { return e.impl.RunID() }
func (e *Engine) State() PersisterState { return e.impl.State() }

// Close releases storage. Call it after Run returns.
func (e *Engine) Close() error {
	return e.impl.Close()
}
