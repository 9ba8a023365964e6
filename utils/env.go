package utils

import (
	"os"
	"strconv"
	"time"
)

// Source is a read-only view of named configuration values.
type Source interface {
	Lookup(key string) (string, bool)
}

// OSEnv reads values from the process environment.
type OSEnv struct{}

// Lookup implements Source.
func (OSEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is an in-memory Source, handy for tests and snapshots.
type MapEnv map[string]string

// Lookup implements Source.
func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain looks keys up in each source in turn; the first hit wins.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(key string) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// Has reports whether key is present with a non-empty value.
func Has(src Source, key string) bool {
	v, ok := src.Lookup(key)
	return ok && v != ""
}

// GetEnv returns the value of a key or a default value if not set.
func GetEnv(src Source, key, defaultValue string) string {
	if value, ok := src.Lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the value of a key as an integer,
// or a default value if not set or if parsing fails.
func GetEnvInt(src Source, key string, defaultValue int) int {
	value := GetEnv(src, key, "")
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetEnvInt64 returns the value of a key as an int64,
// or a default value if not set or if parsing fails.
func GetEnvInt64(src Source, key string, defaultValue int64) int64 {
	value := GetEnv(src, key, "")
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetEnvBool returns the value of a key as a boolean,
// or a default value if not set or if parsing fails.
// Accepts: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false, False
func GetEnvBool(src Source, key string, defaultValue bool) bool {
	value := GetEnv(src, key, "")
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// GetEnvDuration returns the value of a key as a time.Duration,
// or a default value if not set or if parsing fails.
// Accepts formats like: "300ms", "1.5h", "2h45m"
func GetEnvDuration(src Source, key string, defaultValue string) time.Duration {
	value := GetEnv(src, key, "")
	if value == "" {
		duration, _ := time.ParseDuration(defaultValue)
		return duration
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
		return duration
	}

	return duration
}

// GetEnvMillis reads a plain integer number of milliseconds.
func GetEnvMillis(src Source, key string, defaultValue time.Duration) time.Duration {
	ms := GetEnvInt64(src, key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
