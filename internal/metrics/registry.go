package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/thisdougb/tally/internal/config"
	"github.com/thisdougb/tally/internal/errors"
)

// Columns every persisted row carries ahead of the metric columns.
const (
	TimestampColumn = "timestamp"
	IntervalColumn  = "interval_seconds"
)

// Definition declares a metric name with its default value. The default
// also fixes the metric's kind.
type Definition struct {
	Name    string
	Default Value
}

func (d Definition) Kind() Kind { return d.Default.Kind() }

// Define builds a Definition from a dynamic default, see ValueOf.
func Define(name string, def any) (Definition, error) {
	v, err := ValueOf(def)
	if err != nil {
		return Definition{}, fmt.Errorf("metric %q: %w", name, err)
	}
	return Definition{Name: name, Default: v}, nil
}

// Counters declares integer counters starting at zero.
func Counters(names ...string) []Definition {
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, Definition{Name: name, Default: Int(0)})
	}
	return defs
}

// Declarer is anything that declares a fixed set of metrics up front.
type Declarer interface {
	DeclaredMetrics() []Definition
}

// Registry is the merged, ordered set of metric definitions from every
// declarer. It is read-only once built.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry merges declarations in order. A name declared twice keeps
// its first position and takes the later default.
func NewRegistry(ctx context.Context, declarers ...Declarer) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}
	folded := make(map[string]string)

	for _, d := range declarers {
		for _, def := range d.DeclaredMetrics() {
			if err := r.add(ctx, def, folded); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Registry) add(ctx context.Context, def Definition, folded map[string]string) error {
	name := def.Name
	if strings.TrimSpace(name) == "" {
		return errors.Configuration(errors.CodeInvalidOption, "metric with empty name declared")
	}
	if name == TimestampColumn || name == IntervalColumn {
		return errors.Configuration(errors.CodeInvalidOption, "metric name %q is reserved", name)
	}
	if _, err := def.Kind().StorageType(); err != nil {
		return fmt.Errorf("metric %q: %w", name, err)
	}
	if _, err := def.Default.Storage(); err != nil {
		return errors.Configuration(errors.CodeInvalidOption, "metric %q default cannot be stored: %v", name, err)
	}

	// SQLite column names are case insensitive
	lower := strings.ToLower(name)
	if prev, ok := folded[lower]; ok && prev != name {
		return errors.Configuration(errors.CodeInvalidOption, "metric %q collides with %q", name, prev)
	}
	folded[lower] = name

	def.Default = def.Default.Clone()
	if i, ok := r.index[name]; ok {
		if prevKind := r.defs[i].Kind(); prevKind != def.Kind() {
			config.LogWarn(ctx, fmt.Sprintf("metric %s redeclared as %s, was %s", name, def.Kind(), prevKind))
		}
		r.defs[i] = def
		return nil
	}
	r.index[name] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// Definitions returns the definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	for i, def := range r.defs {
		out[i] = Definition{Name: def.Name, Default: def.Default.Clone()}
	}
	return out
}

// Names returns metric names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return Definition{Name: name, Default: r.defs[i].Default.Clone()}, true
}

func (r *Registry) Len() int { return len(r.defs) }

// defaults returns fresh independent copies of every default.
func (r *Registry) defaults() map[string]Value {
	m := make(map[string]Value, len(r.defs))
	for _, def := range r.defs {
		m[def.Name] = def.Default.Clone()
	}
	return m
}

// DeclaredSet adapts a plain definition slice to Declarer.
type DeclaredSet []Definition

func (d DeclaredSet) DeclaredMetrics() []Definition { return d }
