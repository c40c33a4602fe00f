package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := fmt.Errorf("flush: %w", Persistence("insert row", cause))

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, CategoryPersistence, GetCategory(err))
	assert.Contains(t, err.Error(), "[PERSISTENCE:WRITE_FAILED] insert row: disk full")
}

func TestErrorCodeMatching(t *testing.T) {
	declined := New(CategorySchema, CodeDriftDeclined, "operator declined")
	failed := New(CategorySchema, CodeMigration, "copy failed")

	assert.True(t, errors.Is(declined, ErrSchemaDriftDeclined))
	assert.False(t, errors.Is(failed, ErrSchemaDriftDeclined))
	assert.True(t, errors.Is(New(CategoryCollector, CodeUnknownMetric, "x"), ErrUnknownMetric))
	assert.False(t, errors.Is(New(CategoryCollector, CodeUnknownMetric, "x"), ErrKindMismatch))
	assert.Equal(t, Category(""), GetCategory(fmt.Errorf("plain")))
}

func TestGetCode(t *testing.T) {
	err := fmt.Errorf("startup: %w", New(CategorySchema, CodeMigration, "copy failed"))
	assert.Equal(t, CodeMigration, GetCode(err))
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
}
