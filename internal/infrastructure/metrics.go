package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors. It implements the
// analytics cache observer so filter cache behavior is visible in dashboards.
type Metrics struct {
	IngestTotal   *prometheus.CounterVec
	RowsIngested  prometheus.Counter
	ParseDuration prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	WSClients     prometheus.Gauge
}

// NewMetrics registers the collectors against the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry to
// avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IngestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendash_ingest_total",
			Help: "Ingestion attempts by outcome.",
		}, []string{"outcome"}),
		RowsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "attendash_rows_ingested_total",
			Help: "Total rows committed across all ingestions.",
		}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendash_parse_duration_seconds",
			Help:    "Wall time of CSV parse and normalization.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "attendash_filter_cache_hits_total",
			Help: "Filter cache lookups served from the cached entry.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "attendash_filter_cache_misses_total",
			Help: "Filter cache lookups that recomputed the row set.",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "attendash_websocket_clients",
			Help: "Currently connected websocket clients.",
		}),
	}
}

// CacheHit implements analytics.CacheObserver.
func (m *Metrics) CacheHit() { m.cacheHits.Inc() }

// CacheMiss implements analytics.CacheObserver.
func (m *Metrics) CacheMiss() { m.cacheMisses.Inc() }
