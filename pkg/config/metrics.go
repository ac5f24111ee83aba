package config

import (
	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/marmos91/blobfs/pkg/metrics"
	"github.com/marmos91/blobfs/pkg/store"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// FSMetrics is the filesystem collector (nil if disabled)
	FSMetrics blobfs.Metrics

	// StoreMetrics is the object store collector (nil if disabled)
	StoreMetrics store.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled, every field of the result is nil and components
// fall back to their no-op implementations.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:       metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		FSMetrics:    metrics.NewFSMetrics(),
		StoreMetrics: metrics.NewStoreMetrics(),
	}
}
