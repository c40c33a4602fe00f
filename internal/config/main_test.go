package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// adds our test values alongside the real defaults
func init() {
	defaultValues["_TEST_INT_VALUE"] = 10
	defaultValues["_TEST_STR_VALUE"] = "AAA"
	defaultValues["_TEST_BOOL_VALUE"] = false
}

func TestString(t *testing.T) {
	assert.Equal(t, "AAA", StringValue("_TEST_STR_VALUE"))

	t.Setenv("_TEST_STR_VALUE", "hello")
	assert.Equal(t, "hello", StringValue("_TEST_STR_VALUE"))

	assert.Equal(t, "", StringValue("_TEST_NOT_DECLARED"))
}

func TestInt(t *testing.T) {
	assert.Equal(t, 10, IntValue("_TEST_INT_VALUE"))

	t.Setenv("_TEST_INT_VALUE", "20")
	assert.Equal(t, 20, IntValue("_TEST_INT_VALUE"))

	// a non-int env var is ignored
	t.Setenv("_TEST_INT_VALUE", ";")
	assert.Equal(t, 10, IntValue("_TEST_INT_VALUE"))
}

func TestBool(t *testing.T) {
	assert.False(t, BoolValue("_TEST_BOOL_VALUE"))

	t.Setenv("_TEST_BOOL_VALUE", "true")
	assert.True(t, BoolValue("_TEST_BOOL_VALUE"))

	t.Setenv("_TEST_BOOL_VALUE", "hello")
	assert.False(t, BoolValue("_TEST_BOOL_VALUE"))
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, 5, IntValue("TALLY_INTERVAL"))
	assert.Equal(t, "activity.db", StringValue("TALLY_DB_PATH"))
	assert.Equal(t, "runtime", StringValue("TALLY_COLLECTORS"))
	assert.False(t, BoolValue("TALLY_ASSUME_YES"))
}

func TestGetEnvVar(t *testing.T) {
	t.Setenv("_TEST_STR_NEW", "isset")
	assert.Equal(t, "isset", getEnvVar("_TEST_STR_NEW", "fallback"))

	assert.Equal(t, "fallback", getEnvVar("_TEST_STR_MISSING", "fallback"))

	t.Setenv("_TEST_INT_NEW", "32")
	assert.Equal(t, 32, getEnvVar("_TEST_INT_NEW", 1))

	// unsupported fallback types are never converted
	t.Setenv("TEST_UNKNOWN", "2.2")
	assert.Equal(t, 1.1, getEnvVar("TEST_UNKNOWN", 1.1))
}
