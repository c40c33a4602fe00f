package core

import (
	"context"
	"fmt"
	"time"

	"github.com/thisdougb/tally/internal/config"
	tallyerrors "github.com/thisdougb/tally/internal/errors"
	"github.com/thisdougb/tally/internal/metrics"
	"github.com/thisdougb/tally/internal/storage"
)

// Flush runs one persister cycle: snapshot the store, write the snapshot
// as one row and reset the store. The store is only reset once the row is
// committed, so a failed write keeps the interval's values.
//
// The write ignores ctx cancellation so a row is never left half written.
// A failed cycle keeps its values for the next one, whose row then covers
// both: interval_seconds is the interval times the cycles since the last
// committed row.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.state.store(Flushing)
	defer e.state.store(Idle)

	now := e.now()
	snap := e.store.Snapshot()

	row, err := e.encodeRow(now, snap)
	if err != nil {
		e.missed++
		config.LogError(ctx, fmt.Sprintf("encode row: %v", err))
		return err
	}

	if err := e.backend.WriteRow(context.WithoutCancel(ctx), row); err != nil {
		e.missed++
		if tallyerrors.GetCategory(err) == "" {
			err = tallyerrors.Persistence("write row", err)
		}
		config.LogError(ctx, fmt.Sprintf("persist row %s: %v", row.Timestamp, err))
		return err
	}
	config.LogDebug(ctx, fmt.Sprintf("persisted row %s with %d metrics", row.Timestamp, len(row.Values)))

	e.reset()
	return nil
}

// encodeRow converts a snapshot to a row in registry order. Metrics
// missing from the snapshot take their declared default.
func (e *Engine) encodeRow(now time.Time, snap metrics.Snapshot) (storage.Row, error) {
	row := storage.Row{
		Timestamp:       now.UTC().Format(time.RFC3339),
		IntervalSeconds: (e.missed + 1) * int64(e.opts.Interval/time.Second),
		Values:          make(map[string]any, e.registry.Len()),
	}

	for _, def := range e.registry.Definitions() {
		v, ok := snap.Metrics[def.Name]
		if !ok {
			v = def.Default
		}
		if v.Kind() != def.Kind() {
			return storage.Row{}, tallyerrors.Serialization(
				fmt.Sprintf("metric %q holds %s, declared %s", def.Name, v.Kind(), def.Kind()), nil)
		}

		encoded, err := v.Storage()
		if err != nil {
			return storage.Row{}, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		row.Values[def.Name] = encoded
	}
	return row, nil
}
