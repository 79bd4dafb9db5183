// Package metrics exports cityfs operation, open-cache and weather lookup
// metrics to Prometheus.
//
// Collection is off until InitRegistry is called. Before that every
// constructor returns nil and the components observe through their no-op
// implementations:
//
//	metrics.InitRegistry()
//	fsys := cityfs.New(cityfs.Config{
//		Dataset: ds,
//		Metrics: metrics.NewFSMetrics(),
//	})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// newRegistry returns a registry that already carries the Go runtime and
// process collectors, so /metrics reports memory and goroutine counts next
// to the cityfs families.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// InitRegistry enables metrics collection. Only the first call has an effect.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = newRegistry()
	})
}

// GetRegistry returns the global registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
