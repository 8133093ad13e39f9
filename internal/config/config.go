// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Storage settings.
	DataDir            string        // directory holding the WAL segments and lock file.
	SyncOnWrite        bool          // fsync every WAL append before acknowledging.
	CompactionInterval time.Duration // 0 disables background compaction.

	// Runtime pool settings.
	ReflexWorkers           int
	ReflexQueueCapacity     int
	ReflectionWorkers       int
	ReflectionQueueCapacity int

	// Monitor subsystem settings.
	MonitorQueueCapacity  int
	MonitorStreamCapacity int

	// Embedding/pattern settings.
	EmbeddingDim    int
	RegexCacheLimit int

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value.
// Missing variables use sensible defaults; only malformed values are rejected.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		DataDir:  envStr("KYROQL_DATA_DIR", "./kyroql-data"),
		LogLevel: envStr("KYROQL_LOG_LEVEL", "info"),
	}

	cfg.SyncOnWrite, errs = collectBool(errs, "KYROQL_SYNC_ON_WRITE", true)

	cfg.ReflexWorkers, errs = collectInt(errs, "KYROQL_REFLEX_WORKERS", 4)
	cfg.ReflexQueueCapacity, errs = collectInt(errs, "KYROQL_REFLEX_QUEUE_CAPACITY", 256)
	cfg.ReflectionWorkers, errs = collectInt(errs, "KYROQL_REFLECTION_WORKERS", 2)
	cfg.ReflectionQueueCapacity, errs = collectInt(errs, "KYROQL_REFLECTION_QUEUE_CAPACITY", 256)

	cfg.MonitorQueueCapacity, errs = collectInt(errs, "KYROQL_MONITOR_QUEUE_CAPACITY", 4096)
	cfg.MonitorStreamCapacity, errs = collectInt(errs, "KYROQL_MONITOR_STREAM_CAPACITY", 256)

	cfg.EmbeddingDim, errs = collectInt(errs, "KYROQL_EMBEDDING_DIM", 384)
	cfg.RegexCacheLimit, errs = collectInt(errs, "KYROQL_REGEX_CACHE_LIMIT", 1024)

	cfg.CompactionInterval, errs = collectDuration(errs, "KYROQL_COMPACTION_INTERVAL", 0)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("config: KYROQL_DATA_DIR is required"))
	}
	if c.ReflexWorkers <= 0 {
		errs = append(errs, errors.New("config: KYROQL_REFLEX_WORKERS must be positive"))
	}
	if c.ReflexQueueCapacity <= 0 {
		errs = append(errs, errors.New("config: KYROQL_REFLEX_QUEUE_CAPACITY must be positive"))
	}
	if c.ReflectionWorkers <= 0 {
		errs = append(errs, errors.New("config: KYROQL_REFLECTION_WORKERS must be positive"))
	}
	if c.ReflectionQueueCapacity <= 0 {
		errs = append(errs, errors.New("config: KYROQL_REFLECTION_QUEUE_CAPACITY must be positive"))
	}
	if c.MonitorQueueCapacity <= 0 {
		errs = append(errs, errors.New("config: KYROQL_MONITOR_QUEUE_CAPACITY must be positive"))
	}
	if c.MonitorStreamCapacity <= 0 {
		errs = append(errs, errors.New("config: KYROQL_MONITOR_STREAM_CAPACITY must be positive"))
	}
	if c.EmbeddingDim <= 0 {
		errs = append(errs, errors.New("config: KYROQL_EMBEDDING_DIM must be positive"))
	}
	if c.RegexCacheLimit <= 0 {
		errs = append(errs, errors.New("config: KYROQL_REGEX_CACHE_LIMIT must be positive"))
	}
	if c.CompactionInterval < 0 {
		errs = append(errs, errors.New("config: KYROQL_COMPACTION_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
