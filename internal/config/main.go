package config

import (
	"os"
	"strconv"
)

var defaultValues = map[string]interface{}{
	"TALLY_INTERVAL":              5,             // Seconds between persisted rows
	"TALLY_DB_PATH":               "activity.db", // SQLite database path, empty for in-memory
	"TALLY_BACKUP_RETENTION_DAYS": 0,             // Days to keep migration backups, 0 keeps all
	"TALLY_ASSUME_YES":            false,         // Confirm schema migrations without prompting
	"TALLY_SKIP_FAILED_WRITES":    false,         // Keep running after a failed row write
	"TALLY_COLLECTORS":            "runtime",     // Comma separated built-in collectors
	"TALLY_DEBUG":                 false,         // Enable debug logging
}

func StringValue(key string) string {
	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(string)).(string)
	}
	return ""
}

// IntValue gets an int value from the env or default
func IntValue(key string) int {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(int)).(int)
	}
	return 0
}

// BoolValue gets a bool value from the env or default
func BoolValue(key string) bool {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(bool)).(bool)
	}
	return false
}

func getEnvVar(key string, fallback interface{}) interface{} {

	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	switch fallback.(type) {
	case string:
		return value
	case bool:
		valueAsBool, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return valueAsBool
	case int:
		valueAsInt, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return valueAsInt
	}
	return fallback
}
