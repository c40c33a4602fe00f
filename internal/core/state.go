package core

import "sync/atomic"

// PersisterState is the persister's position in its cycle.
type PersisterState int32

const (
	// Idle waits for the next interval tick.
	Idle PersisterState = iota
	// Flushing is taking a snapshot, writing the row and resetting the store.
	Flushing
)

func (s PersisterState) String() string {
	if s == Flushing {
		return "flushing"
	}
	return "idle"
}

type stateHolder struct {
	v atomic.Int32
}

func (h *stateHolder) load() PersisterState   { return PersisterState(h.v.Load()) }
func (h *stateHolder) store(s PersisterState) { h.v.Store(int32(s)) }
