/*
Package tally aggregates activity metrics in memory and persists one row
per fixed interval to a local SQLite table.

Collectors declare the metrics they will update before the engine starts.
Each metric has a name and a default value, and the default fixes its
kind: integer, float, boolean, text or structured (lists and maps, stored
as compact JSON). The merged declarations decide the table layout, one
column per metric after the fixed timestamp and interval_seconds columns.

On startup the engine compares that layout with the table already on
disk. When they differ it asks for confirmation, copies the old file to
<path>.bak.YYYYMMDD_HHMMSS and creates a fresh table. Every interval it
then snapshots the store, writes the snapshot as one row in a transaction
and resets the store to the declared defaults.

Example:

	type clicks struct{}

	func (clicks) DeclaredMetrics() []tally.Definition {
		return tally.Counters("mouse.clicks.total")
	}

	func (clicks) Start(ctx context.Context, store *tally.Store) error {
		go watchClicks(ctx, func() {
			store.Update(func(tx *tally.Tx) error {
				return tx.Incr("mouse.clicks.total")
			})
		})
		return nil
	}

	e, err := tally.New(ctx, tally.Options{
		Interval: 5 * time.Second,
		DBPath:   "activity.db",
		Confirm:  askOperator,
	}, clicks{}, tally.NewRuntimeCollector())
	if err != nil {
		return err
	}
	defer e.Close()

	return e.Run(ctx)

A declined migration returns an error matching ErrSchemaDriftDeclined and
leaves the database untouched. An empty DBPath keeps rows in memory.
*/
package tally
