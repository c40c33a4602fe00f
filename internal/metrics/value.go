package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/thisdougb/tally/internal/errors"
)

// Kind is the closed set of value kinds a metric can hold.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	}
	return "invalid"
}

// StorageType maps a kind to its SQLite column type.
func (k Kind) StorageType() (string, error) {
	switch k {
	case KindInteger:
		return "INTEGER", nil
	case KindFloat:
		return "REAL", nil
	case KindBoolean:
		return "BOOLEAN", nil
	case KindText, KindStructured:
		return "TEXT", nil
	}
	return "", errors.Configuration(errors.CodeUnsupportedKind, "no storage type for %s kind", k)
}

// Value is a tagged metric value. Structured values hold trees of
// []any, map[string]any and scalars, and are deep copied whenever they
// cross the store boundary.
type Value struct {
	kind Kind
	num  int64
	real float64
	flag bool
	text string
	data any
}

func Int(n int64) Value     { return Value{kind: KindInteger, num: n} }
func Float(f float64) Value { return Value{kind: KindFloat, real: f} }
func Bool(b bool) Value     { return Value{kind: KindBoolean, flag: b} }
func Text(s string) Value   { return Value{kind: KindText, text: s} }

// List returns a Structured value holding a list. List() is an empty list.
func List(items ...any) Value {
	l := make([]any, 0, len(items))
	for _, item := range items {
		l = append(l, copyData(item))
	}
	return Value{kind: KindStructured, data: l}
}

// Map returns a Structured value holding a copy of m.
func Map(m map[string]any) Value {
	if m == nil {
		m = map[string]any{}
	}
	return Value{kind: KindStructured, data: copyData(m)}
}

// ValueOf converts a dynamic Go value into a Value. Integers, floats,
// bools, strings, slices and string-keyed maps are supported.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case []any:
		return List(t...), nil
	case map[string]any:
		return Map(t), nil
	}

	rv := reflect.ValueOf(v)
	if rv.IsValid() {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			items := make([]any, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).Interface()
			}
			return List(items...), nil
		case reflect.Map:
			if rv.Type().Key().Kind() == reflect.String {
				m := make(map[string]any, rv.Len())
				iter := rv.MapRange()
				for iter.Next() {
					m[iter.Key().String()] = iter.Value().Interface()
				}
				return Map(m), nil
			}
		}
	}
	return Value{}, errors.Configuration(errors.CodeUnsupportedKind, "unsupported metric value %T (%v)", v, v)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() int64     { return v.num }
func (v Value) Float() float64 { return v.real }
func (v Value) Bool() bool     { return v.flag }
func (v Value) Text() string   { return v.text }

// Data returns a copy of a Structured value's tree.
func (v Value) Data() any { return copyData(v.data) }

// Len returns the number of entries in a Structured list or map.
func (v Value) Len() int {
	switch d := v.data.(type) {
	case []any:
		return len(d)
	case map[string]any:
		return len(d)
	}
	return 0
}

// Interface returns the value as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.num
	case KindFloat:
		return v.real
	case KindBoolean:
		return v.flag
	case KindText:
		return v.text
	case KindStructured:
		return copyData(v.data)
	}
	return nil
}

// Clone returns a Value that shares no mutable state with v.
func (v Value) Clone() Value {
	if v.kind == KindStructured {
		v.data = copyData(v.data)
	}
	return v
}

// Storage encodes the value for its column. Structured values become
// compact JSON text. NaN has no column encoding and is an error.
func (v Value) Storage() (any, error) {
	switch v.kind {
	case KindInteger:
		return v.num, nil
	case KindFloat:
		if math.IsNaN(v.real) {
			return nil, errors.Serialization("encode float value: NaN", nil)
		}
		return v.real, nil
	case KindBoolean:
		return v.flag, nil
	case KindText:
		return v.text, nil
	case KindStructured:
		b, err := json.Marshal(v.data)
		if err != nil {
			return nil, errors.Serialization("encode structured value", err)
		}
		return string(b), nil
	}
	return nil, errors.Serialization(fmt.Sprintf("value of %s kind", v.kind), nil)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) String() string {
	return fmt.Sprintf("%v", v.Interface())
}

// copyData deep copies the container types Structured values are built from.
func copyData(d any) any {
	switch t := d.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyData(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyData(item)
		}
		return out
	case Value:
		return t.Interface()
	}

	rv := reflect.ValueOf(d)
	if !rv.IsValid() {
		return d
	}
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = copyData(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return d
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = copyData(iter.Value().Interface())
		}
		return out
	}
	return d
}
