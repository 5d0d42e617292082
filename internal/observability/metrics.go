// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poolscope"

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheErrors  *prometheus.CounterVec

	// Remote service metrics
	RemoteCallLatency *prometheus.HistogramVec
	RemoteCallErrors  *prometheus.CounterVec

	// Sampler metrics
	SampledHeights prometheus.Counter
	DroppedHeights *prometheus.CounterVec

	// Archive metrics
	ArchivedSnapshots prometheus.Counter
	ArchiveHeight     prometheus.Gauge

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by kind and result",
		}, []string{"kind", "result"}),
		CacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache backend errors by operation",
		}, []string{"operation"}),

		RemoteCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_latency_seconds",
			Help:      "Remote query service call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RemoteCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_errors_total",
			Help:      "Remote query service transport errors by method",
		}, []string{"method"}),

		SampledHeights: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "heights_sampled_total",
			Help:      "Heights decoded into snapshots",
		}),
		DroppedHeights: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "heights_dropped_total",
			Help:      "Heights dropped from a sample by failing stage",
		}, []string{"stage"}),

		ArchivedSnapshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "snapshots_written_total",
			Help:      "Snapshots written to the archive sink",
		}),
		ArchiveHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "last_height",
			Help:      "Last height covered by the archive checkpoint",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCacheLookup records a cache hit or miss for kind.
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordCacheError records a failed cache get or set.
func (m *Metrics) RecordCacheError(operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordRemoteCall records a remote call's latency and transport outcome.
func (m *Metrics) RecordRemoteCall(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.RemoteCallLatency.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		m.RemoteCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordSample records the outcome of one sampler run.
func (m *Metrics) RecordSample(sampled int, droppedByStage map[string]int) {
	if m == nil {
		return
	}
	m.SampledHeights.Add(float64(sampled))
	for stage, count := range droppedByStage {
		m.DroppedHeights.WithLabelValues(stage).Add(float64(count))
	}
}

// RecordArchiveBatch records a persisted archive batch.
func (m *Metrics) RecordArchiveBatch(written int, lastHeight uint64) {
	if m == nil {
		return
	}
	m.ArchivedSnapshots.Add(float64(written))
	m.ArchiveHeight.Set(float64(lastHeight))
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
