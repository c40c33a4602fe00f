package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tallyerrors "github.com/thisdougb/tally/internal/errors"
)

func TestStorageType(t *testing.T) {
	var TestCases = []struct {
		kind     Kind
		expected string
	}{
		{KindInteger, "INTEGER"},
		{KindFloat, "REAL"},
		{KindBoolean, "BOOLEAN"},
		{KindText, "TEXT"},
		{KindStructured, "TEXT"},
	}

	for _, tc := range TestCases {
		got, err := tc.kind.StorageType()
		require.NoError(t, err, tc.kind.String())
		assert.Equal(t, tc.expected, got, tc.kind.String())
	}

	_, err := KindInvalid.StorageType()
	assert.True(t, errors.Is(err, tallyerrors.ErrConfiguration))
}

func TestValueOf(t *testing.T) {
	var TestCases = []struct {
		description string
		in          any
		kind        Kind
	}{
		{"int", 3, KindInteger},
		{"int64", int64(-4), KindInteger},
		{"uint16", uint16(9), KindInteger},
		{"float64", 1.5, KindFloat},
		{"float32", float32(2.5), KindFloat},
		{"bool", true, KindBoolean},
		{"string", "idle", KindText},
		{"any slice", []any{1, "a"}, KindStructured},
		{"typed slice", []string{"a", "b"}, KindStructured},
		{"empty map", map[string]any{}, KindStructured},
		{"typed map", map[string]int{"x": 1}, KindStructured},
	}

	for _, tc := range TestCases {
		v, err := ValueOf(tc.in)
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.kind, v.Kind(), tc.description)
	}

	for _, bad := range []any{nil, struct{}{}, make(chan int), map[int]string{1: "a"}, uint64(1)} {
		_, err := ValueOf(bad)
		assert.True(t, errors.Is(err, tallyerrors.ErrConfiguration), "%T", bad)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Map(map[string]any{"apps": []any{"term"}})
	clone := orig.Clone()

	data := clone.Data().(map[string]any)
	data["apps"] = append(data["apps"].([]any), "browser")

	assert.Equal(t, 1, len(orig.Interface().(map[string]any)["apps"].([]any)))

	// nested slices handed to List are copied too
	items := []any{[]any{1}}
	l := List(items...)
	items[0].([]any)[0] = 99
	assert.Equal(t, []any{[]any{1}}, l.Interface())
}

func TestStorageEncoding(t *testing.T) {
	var TestCases = []struct {
		description string
		value       Value
		expected    any
	}{
		{"integer passes through", Int(3), int64(3)},
		{"float passes through", Float(0.25), 0.25},
		{"bool passes through", Bool(true), true},
		{"text passes through", Text("vim"), "vim"},
		{"empty list", List(), "[]"},
		{"list is compact json", List(map[string]any{"app": "vim"}), `[{"app":"vim"}]`},
		{"map is compact json", Map(map[string]any{"b": 1, "a": 2}), `{"a":2,"b":1}`},
	}

	for _, tc := range TestCases {
		got, err := tc.value.Storage()
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expected, got, tc.description)
	}
}

func TestStorageEncodingFailure(t *testing.T) {
	_, err := List(math.Inf(1)).Storage()
	assert.True(t, errors.Is(err, tallyerrors.ErrSerialization))

	_, err = Value{}.Storage()
	assert.True(t, errors.Is(err, tallyerrors.ErrSerialization))
}

func TestStorageRejectsNaN(t *testing.T) {
	var TestCases = []struct {
		description string
		value       Value
	}{
		{"top level float", Float(math.NaN())},
		{"inside a list", List(1.0, math.NaN())},
		{"inside a map", Map(map[string]any{"avg": math.NaN()})},
	}

	for _, tc := range TestCases {
		got, err := tc.value.Storage()
		assert.Nil(t, got, tc.description)
		assert.True(t, errors.Is(err, tallyerrors.ErrSerialization), tc.description)
	}

	got, err := Float(math.Inf(-1)).Storage()
	require.NoError(t, err)
	assert.Equal(t, math.Inf(-1), got)
}
