package config

import (
	"github.com/marmos91/cityfs/pkg/cityfs"
	"github.com/marmos91/cityfs/pkg/metrics"
	"github.com/marmos91/cityfs/pkg/opencache"
	"github.com/marmos91/cityfs/pkg/weather"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// FS observes filesystem operations (nil = no-op)
	FS cityfs.Metrics

	// Cache observes the open-file snapshot cache (nil = no-op)
	Cache opencache.Metrics

	// Weather observes weather lookups (nil = no-op)
	Weather weather.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns nil collectors, which the components replace with no-ops
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	// Initialize global Prometheus registry
	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:  server,
		FS:      metrics.NewFSMetrics(),
		Cache:   metrics.NewCacheMetrics(),
		Weather: metrics.NewWeatherMetrics(),
	}
}
