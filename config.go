package kadedb

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// StorageConfig configures the paged storage substrate.
type StorageConfig struct {
	DataDir      string `toml:"data_dir"`
	PageSize     int    `toml:"page_size"`
	CacheCapacity int   `toml:"cache_capacity"`
}

// EngineConfig configures the in-memory relational/document engines.
type EngineConfig struct {
	EnforceUniqueness bool `toml:"enforce_uniqueness"`
	MaxScanRows       int  `toml:"max_scan_rows"`
}

// LoggingConfig configures the zap-backed logger.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// SinkConfig configures the optional reference ChangeSink adapters.
type SinkConfig struct {
	FlushInterval int `toml:"flush_interval_seconds"`
}

// Config is the top-level, file-loadable configuration for a KadeDB
// embedding. Zero value is not valid; use DefaultConfig.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Engine  EngineConfig  `toml:"engine"`
	Logging LoggingConfig `toml:"logging"`
	Sink    SinkConfig    `toml:"sink"`
}

// DefaultConfig returns a Config with conservative, always-valid defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			DataDir:       "./data",
			PageSize:      4096,
			CacheCapacity: 256,
		},
		Engine: EngineConfig{
			EnforceUniqueness: true,
			MaxScanRows:       0, // unbounded
		},
		Logging: LoggingConfig{Level: "info"},
		Sink:    SinkConfig{FlushInterval: 30},
	}
}

// ConfigError wraps a config validation failure with the offending field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks c for internal consistency.
func (c Config) Validate() error {
	if c.Storage.PageSize <= 0 || c.Storage.PageSize%512 != 0 {
		return &ConfigError{Field: "storage.page_size", Message: "must be a positive multiple of 512"}
	}
	if c.Storage.CacheCapacity <= 0 {
		return &ConfigError{Field: "storage.cache_capacity", Message: "must be positive"}
	}
	if c.Storage.DataDir == "" {
		return &ConfigError{Field: "storage.data_dir", Message: "must not be empty"}
	}
	if c.Engine.MaxScanRows < 0 {
		return &ConfigError{Field: "engine.max_scan_rows", Message: "must not be negative"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	if c.Sink.FlushInterval <= 0 {
		return &ConfigError{Field: "sink.flush_interval_seconds", Message: "must be positive"}
	}
	return nil
}

// LoadConfig reads a TOML config file, applies environment-variable
// overrides (KADEDB_<SECTION>_<FIELD>, uppercased) for the storage,
// logging and sink fields, and validates the result. Engine fields have no
// environment override.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KADEDB_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v, ok := getEnvInt("KADEDB_STORAGE_PAGE_SIZE"); ok {
		cfg.Storage.PageSize = v
	}
	if v, ok := getEnvInt("KADEDB_STORAGE_CACHE_CAPACITY"); ok {
		cfg.Storage.CacheCapacity = v
	}
	if v := os.Getenv("KADEDB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := getEnvInt("KADEDB_SINK_FLUSH_INTERVAL_SECONDS"); ok {
		cfg.Sink.FlushInterval = v
	}
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
