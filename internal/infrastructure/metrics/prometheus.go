package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	// Prometheus metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheHitRate       prometheus.Gauge
	cacheKeys          prometheus.Gauge
	repositoryOps      *prometheus.CounterVec
	repositoryRows     *prometheus.CounterVec
	repositoryDuration *prometheus.HistogramVec
	repositoryErrors   *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter registering its
// series with reg. A nil reg uses the default registerer.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	labels := []string{"entity_type", "operation"}

	return &PrometheusExporter{
		collector: collector,
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitystore_metadata_cache_hits_total",
			Help: "Total number of entity type cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitystore_metadata_cache_misses_total",
			Help: "Total number of entity type cache misses",
		}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitystore_metadata_cache_evictions_total",
			Help: "Total number of entity types evicted from the cache",
		}),
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "entitystore_metadata_cache_hit_rate",
			Help: "Current cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "entitystore_metadata_cache_keys_current",
			Help: "Current number of cached entity types",
		}),
		repositoryOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitystore_repository_operations_total",
				Help: "Total number of repository operations",
			},
			labels,
		),
		repositoryRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitystore_repository_rows_total",
				Help: "Total number of rows read or written by repository operations",
			},
			labels,
		),
		repositoryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entitystore_repository_operation_duration_seconds",
				Help:    "Duration of repository operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			labels,
		),
		repositoryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitystore_repository_errors_total",
				Help: "Total number of failed repository operations",
			},
			labels,
		),
	}
}

// Update updates Gauge metrics from the collector.
// Counters are updated as operations are recorded, so only gauges are
// refreshed here. This should be called periodically.
func (e *PrometheusExporter) Update() {
	if e.collector == nil {
		return
	}
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
}

// RecordOperation implements Recorder.
func (e *PrometheusExporter) RecordOperation(entityType, operation string, rows int, duration time.Duration, err error) {
	e.repositoryOps.WithLabelValues(entityType, operation).Inc()
	e.repositoryDuration.WithLabelValues(entityType, operation).Observe(duration.Seconds())
	if rows > 0 {
		e.repositoryRows.WithLabelValues(entityType, operation).Add(float64(rows))
	}
	if err != nil {
		e.repositoryErrors.WithLabelValues(entityType, operation).Inc()
	}
}

// RecordCacheHit implements Recorder.
func (e *PrometheusExporter) RecordCacheHit() {
	e.cacheHits.Inc()
}

// RecordCacheMiss implements Recorder.
func (e *PrometheusExporter) RecordCacheMiss() {
	e.cacheMisses.Inc()
}

// RecordCacheEviction implements Recorder.
func (e *PrometheusExporter) RecordCacheEviction() {
	e.cacheEvictions.Inc()
}
