package config

import (
	"strings"

	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/marmos91/blobfs/pkg/metrics"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyFilesystemDefaults(&cfg.Filesystem)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets object store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Defaults for the local stores are always present so a generated
	// config file documents them.
	if _, ok := cfg.Memory["container"]; !ok {
		cfg.Memory["container"] = "blobfs"
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/blobfs-store"
	}
	if _, ok := cfg.Badger["container"]; !ok {
		cfg.Badger["container"] = "blobfs"
	}
}

// applyFilesystemDefaults sets filesystem emulation defaults.
func applyFilesystemDefaults(cfg *FilesystemConfig) {
	if cfg.Delimiter == "" {
		cfg.Delimiter = blobfs.DefaultDelimiter
	}
	if cfg.RenameCheckInterval == 0 {
		cfg.RenameCheckInterval = blobfs.DefaultRenameCheckInterval
	}
	// RenameTimeout defaults to 0 (bounded only by the caller's context)
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
