package metrics

import (
	"time"

	"github.com/marmos91/cityfs/pkg/cityfs"
	"github.com/marmos91/cityfs/pkg/opencache"
	"github.com/marmos91/cityfs/pkg/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fsMetrics is the Prometheus implementation of cityfs.Metrics.
type fsMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewFSMetrics returns filesystem operation metrics registered on the
// global registry, or nil when metrics are disabled (cityfs then uses its
// no-op implementation).
func NewFSMetrics() cityfs.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newFSMetrics(GetRegistry())
}

func newFSMetrics(reg prometheus.Registerer) *fsMetrics {
	return &fsMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityfs_operations_total",
				Help: "Total number of filesystem operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cityfs_operation_duration_seconds",
				Help: "Duration of filesystem operations in seconds",
				Buckets: []float64{
					0.00001, // 10µs
					0.0001,  // 100µs
					0.001,   // 1ms
					0.01,    // 10ms
					0.1,     // 100ms
					0.5,     // 500ms
					1,       // 1s
					5,       // 5s
					10,      // 10s, the default weather timeout
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *fsMetrics) ObserveOperation(operation, status string, duration time.Duration) {
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// cacheMetrics is the Prometheus implementation of opencache.Metrics.
type cacheMetrics struct {
	records   prometheus.Counter
	reads     *prometheus.CounterVec
	readBytes prometheus.Counter
	entries   prometheus.Gauge
}

// NewCacheMetrics returns open-file cache metrics registered on the global
// registry, or nil when metrics are disabled.
func NewCacheMetrics() opencache.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newCacheMetrics(GetRegistry())
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	return &cacheMetrics{
		records: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cityfs_opencache_records_total",
				Help: "Total number of content snapshots recorded at open",
			},
		),
		reads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityfs_opencache_reads_total",
				Help: "Total number of snapshot reads by status (hit, miss)",
			},
			[]string{"status"},
		),
		readBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cityfs_opencache_read_bytes_total",
				Help: "Total bytes served from snapshots",
			},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "cityfs_opencache_entries",
				Help: "Current number of recorded snapshots",
			},
		),
	}
}

func (m *cacheMetrics) RecordOpen(int) {
	m.records.Inc()
}

func (m *cacheMetrics) RecordRead(hit bool, n int) {
	status := "hit"
	if !hit {
		status = "miss"
	}
	m.reads.WithLabelValues(status).Inc()
	m.readBytes.Add(float64(n))
}

func (m *cacheMetrics) SetEntries(n int) {
	m.entries.Set(float64(n))
}

// weatherMetrics is the Prometheus implementation of weather.Metrics.
type weatherMetrics struct {
	lookups  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewWeatherMetrics returns weather lookup metrics registered on the
// global registry, or nil when metrics are disabled.
func NewWeatherMetrics() weather.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newWeatherMetrics(GetRegistry())
}

func newWeatherMetrics(reg prometheus.Registerer) *weatherMetrics {
	return &weatherMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityfs_weather_lookups_total",
				Help: "Total number of weather lookups by status",
			},
			[]string{"status"},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cityfs_weather_lookup_duration_seconds",
				Help:    "Duration of weather lookups in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms .. ~10s
			},
		),
	}
}

func (m *weatherMetrics) ObserveLookup(status string, duration time.Duration) {
	m.lookups.WithLabelValues(status).Inc()
	m.duration.Observe(duration.Seconds())
}
