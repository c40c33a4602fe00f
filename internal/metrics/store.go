package metrics

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/thisdougb/tally/internal/errors"
)

// Event is one structured entry in a named event list.
type Event map[string]any

// Store holds the current interval's metric values, event lists and
// metadata. One mutex guards all three; collectors mutate through Update
// and the persister reads through Snapshot and clears through Reset.
type Store struct {
	mu       sync.Mutex
	registry *Registry
	metrics  map[string]Value
	events   map[string][]Event
	metadata map[string]any
}

// NewStore creates a store seeded with the registry defaults.
func NewStore(r *Registry) *Store {
	s := &Store{registry: r}
	s.Reset()
	return s
}

func (s *Store) Registry() *Registry { return s.registry }

// Reset replaces metrics with fresh copies of the defaults and clears
// events and metadata. Metadata that must outlive an interval, such as
// the engine's run id, is written again by the caller after Reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = s.registry.defaults()
	s.events = make(map[string][]Event)
	s.metadata = make(map[string]any)
}

// Snapshot returns a deep copy of the store taken under the lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Metrics:  make(map[string]Value, len(s.metrics)),
		Events:   make(map[string][]Event, len(s.events)),
		Metadata: make(map[string]any, len(s.metadata)),
	}
	for name, v := range s.metrics {
		snap.Metrics[name] = v.Clone()
	}
	for name, list := range s.events {
		snap.Events[name] = copyEvents(list)
	}
	for key, v := range s.metadata {
		snap.Metadata[key] = copyData(v)
	}
	return snap
}

// Update runs fn while holding the store lock. If fn returns an error
// every change it made is rolled back, so a snapshot sees all of an
// update or none of it. The Tx must not be retained after fn returns.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Tx is the mutation handle passed to Update. It keeps the prior state of
// everything it touches until Update returns.
type Tx struct {
	s        *Store
	metrics  map[string]Value
	events   map[string]saved[[]Event]
	metadata map[string]saved[any]
}

type saved[T any] struct {
	value   T
	present bool
}

func (tx *Tx) saveMetric(name string) {
	if _, ok := tx.metrics[name]; ok {
		return
	}
	if tx.metrics == nil {
		tx.metrics = make(map[string]Value)
	}
	tx.metrics[name] = tx.s.metrics[name].Clone()
}

func (tx *Tx) saveEvents(name string) {
	if _, ok := tx.events[name]; ok {
		return
	}
	if tx.events == nil {
		tx.events = make(map[string]saved[[]Event])
	}
	list, ok := tx.s.events[name]
	tx.events[name] = saved[[]Event]{value: copyEvents(list), present: ok}
}

func (tx *Tx) saveMetadata(key string) {
	if _, ok := tx.metadata[key]; ok {
		return
	}
	if tx.metadata == nil {
		tx.metadata = make(map[string]saved[any])
	}
	v, ok := tx.s.metadata[key]
	tx.metadata[key] = saved[any]{value: copyData(v), present: ok}
}

func (tx *Tx) rollback() {
	for name, v := range tx.metrics {
		tx.s.metrics[name] = v
	}
	for name, old := range tx.events {
		if old.present {
			tx.s.events[name] = old.value
		} else {
			delete(tx.s.events, name)
		}
	}
	for key, old := range tx.metadata {
		if old.present {
			tx.s.metadata[key] = old.value
		} else {
			delete(tx.s.metadata, key)
		}
	}
}

func (tx *Tx) lookup(name string, want Kind) (Value, error) {
	v, ok := tx.s.metrics[name]
	if !ok {
		return Value{}, errors.New(errors.CategoryCollector, errors.CodeUnknownMetric,
			fmt.Sprintf("metric %q was not declared", name))
	}
	if want != KindInvalid && v.kind != want {
		return Value{}, errors.New(errors.CategoryCollector, errors.CodeKindMismatch,
			fmt.Sprintf("metric %q is %s, not %s", name, v.kind, want))
	}
	return v, nil
}

// Get returns a copy of the current value of a declared metric.
func (tx *Tx) Get(name string) (Value, error) {
	v, err := tx.lookup(name, KindInvalid)
	if err != nil {
		return Value{}, err
	}
	return v.Clone(), nil
}

// Set replaces a metric value. The value must match the declared kind.
func (tx *Tx) Set(name string, v Value) error {
	if v.kind == KindInvalid {
		return errors.New(errors.CategoryCollector, errors.CodeKindMismatch,
			fmt.Sprintf("metric %q set to an invalid value", name))
	}
	if _, err := tx.lookup(name, v.kind); err != nil {
		return err
	}
	tx.saveMetric(name)
	tx.s.metrics[name] = v.Clone()
	return nil
}

// Add increments an integer metric.
func (tx *Tx) Add(name string, delta int64) error {
	v, err := tx.lookup(name, KindInteger)
	if err != nil {
		return err
	}
	tx.saveMetric(name)
	v.num += delta
	tx.s.metrics[name] = v
	return nil
}

// Incr adds one to an integer metric.
func (tx *Tx) Incr(name string) error {
	return tx.Add(name, 1)
}

// Max raises an integer metric to n if n is larger.
func (tx *Tx) Max(name string, n int64) error {
	v, err := tx.lookup(name, KindInteger)
	if err != nil {
		return err
	}
	if n > v.num {
		tx.saveMetric(name)
		v.num = n
		tx.s.metrics[name] = v
	}
	return nil
}

// AddFloat increments a float metric.
func (tx *Tx) AddFloat(name string, delta float64) error {
	v, err := tx.lookup(name, KindFloat)
	if err != nil {
		return err
	}
	tx.saveMetric(name)
	v.real += delta
	tx.s.metrics[name] = v
	return nil
}

// Append adds a copy of item to a structured list metric.
func (tx *Tx) Append(name string, item any) error {
	v, err := tx.lookup(name, KindStructured)
	if err != nil {
		return err
	}
	list, ok := v.data.([]any)
	if !ok {
		return errors.New(errors.CategoryCollector, errors.CodeKindMismatch,
			fmt.Sprintf("metric %q is not a list", name))
	}
	tx.saveMetric(name)
	v.data = append(list, copyData(item))
	tx.s.metrics[name] = v
	return nil
}

// Put stores a copy of item under key in a structured mapping metric.
func (tx *Tx) Put(name, key string, item any) error {
	v, err := tx.lookup(name, KindStructured)
	if err != nil {
		return err
	}
	m, ok := v.data.(map[string]any)
	if !ok {
		return errors.New(errors.CategoryCollector, errors.CodeKindMismatch,
			fmt.Sprintf("metric %q is not a mapping", name))
	}
	tx.saveMetric(name)
	m[key] = copyData(item)
	return nil
}

// Events returns the live event list for name. Entries may be modified
// in place until fn returns.
func (tx *Tx) Events(name string) []Event {
	tx.saveEvents(name)
	return tx.s.events[name]
}

// AppendEvent adds e to the end of the named event list.
func (tx *Tx) AppendEvent(name string, e Event) {
	tx.saveEvents(name)
	tx.s.events[name] = append(tx.s.events[name], copyEvent(e))
}

// UpsertEvent applies fn to the first entry matching match, appending a
// new empty entry first if none matches. It reports whether an entry was
// created.
func (tx *Tx) UpsertEvent(name string, match func(Event) bool, fn func(Event)) bool {
	tx.saveEvents(name)
	for _, e := range tx.s.events[name] {
		if match(e) {
			fn(e)
			return false
		}
	}
	e := Event{}
	fn(e)
	tx.s.events[name] = append(tx.s.events[name], e)
	return true
}

// SetMetadata records v under key, replacing any earlier value.
func (tx *Tx) SetMetadata(key string, v any) {
	tx.saveMetadata(key)
	tx.s.metadata[key] = copyData(v)
}

func (tx *Tx) Metadata(key string) (any, bool) {
	v, ok := tx.s.metadata[key]
	return v, ok
}

// Snapshot is a point-in-time copy of a Store.
type Snapshot struct {
	Metrics  map[string]Value   `json:"metrics"`
	Events   map[string][]Event `json:"events"`
	Metadata map[string]any     `json:"metadata"`
}

// Dump returns the snapshot as indented JSON.
func (s Snapshot) Dump() (string, error) {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return "", errors.Serialization("dump snapshot", err)
	}
	return string(data), nil
}

func copyEvent(e Event) Event {
	return Event(copyData(map[string]any(e)).(map[string]any))
}

func copyEvents(list []Event) []Event {
	out := make([]Event, len(list))
	for i, e := range list {
		out[i] = copyEvent(e)
	}
	return out
}
