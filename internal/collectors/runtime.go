package collectors

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/thisdougb/tally/internal/config"
	"github.com/thisdougb/tally/internal/metrics"
)

// Metric names declared by Runtime.
const (
	GoroutinesMax = "runtime.goroutines.max"
	HeapBytes     = "runtime.heap.bytes"
	GCCycles      = "runtime.gc.cycles"
	Samples       = "runtime.samples"
	CPUEstimate   = "runtime.cpu.estimate"

	// GCEvents lists one entry per garbage collection seen in the interval
	GCEvents = "runtime.gc"
)

// Runtime samples the Go runtime of this process.
type Runtime struct {
	interval time.Duration

	mu        sync.Mutex
	started   bool
	lastGC    uint32
	lastAlloc uint64
	cpu       *RollingAverage
}

// NewRuntime creates a runtime collector sampling once a second.
func NewRuntime() *Runtime {
	return NewRuntimeWithInterval(time.Second)
}

// NewRuntimeWithInterval creates a collector with a custom sample interval.
func NewRuntimeWithInterval(interval time.Duration) *Runtime {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return &Runtime{
		interval:  interval,
		lastGC:    ms.NumGC,
		lastAlloc: ms.TotalAlloc,
		cpu:       NewRollingAverage(5),
	}
}

func (rc *Runtime) DeclaredMetrics() []metrics.Definition {
	defs := []metrics.Definition{
		{Name: GoroutinesMax, Default: metrics.Int(0)},
		{Name: HeapBytes, Default: metrics.Int(0)},
		{Name: CPUEstimate, Default: metrics.Float(0)},
	}
	return append(defs, metrics.Counters(GCCycles, Samples)...)
}

// Start samples immediately and then once per interval until ctx is done.
func (rc *Runtime) Start(ctx context.Context, store *metrics.Store) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.started {
		return fmt.Errorf("runtime collector already started")
	}
	rc.started = true

	go rc.collectLoop(ctx, store)
	return nil
}

func (rc *Runtime) collectLoop(ctx context.Context, store *metrics.Store) {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.CollectOnce(ctx, store)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.CollectOnce(ctx, store)
		}
	}
}

// CollectOnce takes a single sample into store.
func (rc *Runtime) CollectOnce(ctx context.Context, store *metrics.Store) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	goroutines := runtime.NumGoroutine()

	rc.mu.Lock()
	gcDelta := ms.NumGC - rc.lastGC
	firstGC := rc.lastGC + 1
	cpu := rc.cpu.Add(cpuEstimate(gcDelta, ms.TotalAlloc-rc.lastAlloc))
	rc.lastGC = ms.NumGC
	rc.lastAlloc = ms.TotalAlloc
	rc.mu.Unlock()

	err := store.Update(func(tx *metrics.Tx) error {
		if err := tx.Max(GoroutinesMax, int64(goroutines)); err != nil {
			return err
		}
		if err := tx.Set(HeapBytes, metrics.Int(int64(ms.HeapAlloc))); err != nil {
			return err
		}
		if err := tx.Add(GCCycles, int64(gcDelta)); err != nil {
			return err
		}
		if err := tx.Incr(Samples); err != nil {
			return err
		}
		if err := tx.Set(CPUEstimate, metrics.Float(cpu)); err != nil {
			return err
		}

		recordGCEvents(tx, &ms, firstGC)

		tx.SetMetadata("runtime.goos", runtime.GOOS)
		tx.SetMetadata("runtime.version", runtime.Version())
		return nil
	})
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("runtime sample: %v", err))
	}
}

// recordGCEvents adds an entry for each cycle from first to ms.NumGC that
// the runtime still holds pause data for. Cycles are keyed by number so a
// repeated sample never duplicates an entry.
func recordGCEvents(tx *metrics.Tx, ms *runtime.MemStats, first uint32) {
	window := uint32(len(ms.PauseNs))
	if ms.NumGC >= window && first <= ms.NumGC-window {
		first = ms.NumGC - window + 1
	}

	for cycle := first; cycle <= ms.NumGC && cycle > 0; cycle++ {
		i := (cycle + window - 1) % window
		pause := int64(ms.PauseNs[i])
		end := time.Unix(0, int64(ms.PauseEnd[i])).UTC().Format(time.RFC3339Nano)
		n := int64(cycle)

		tx.UpsertEvent(GCEvents,
			func(e metrics.Event) bool { return e["cycle"] == n },
			func(e metrics.Event) {
				e["cycle"] = n
				e["pause_ns"] = pause
				e["end"] = end
			})
	}
}

// cpuEstimate is a rough load heuristic from GC activity and allocation,
// capped to 0-100.
func cpuEstimate(gcCycles uint32, allocBytes uint64) float64 {
	estimate := float64(gcCycles)*10.0 + float64(allocBytes)/1024/1024*0.1

	if estimate > 100.0 {
		estimate = 100.0
	}
	if estimate < 0.0 {
		estimate = 0.0
	}
	return estimate
}
