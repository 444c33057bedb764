package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the service's Prometheus surface. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	builds         *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	queries        *prometheus.CounterVec
	queryDuration  prometheus.Histogram
	providerErrors *prometheus.CounterVec
	indexReady     prometheus.Gauge
	indexChunks    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Name:      "index_builds_total",
			Help:      "Index build attempts by outcome.",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docchat",
			Name:      "index_build_duration_seconds",
			Help:      "Time from accepted upload to installed index.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Name:      "queries_total",
			Help:      "Chat queries by outcome.",
		}, []string{"status"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docchat",
			Name:      "query_duration_seconds",
			Help:      "Time to stream a complete answer.",
			Buckets:   prometheus.DefBuckets,
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Name:      "provider_errors_total",
			Help:      "Backend failures by provider and error class.",
		}, []string{"provider", "class"}),
		indexReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docchat",
			Name:      "index_ready",
			Help:      "1 when a document index is loaded.",
		}),
		indexChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docchat",
			Name:      "index_chunks",
			Help:      "Chunks in the loaded index.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.builds, m.buildDuration, m.queries, m.queryDuration,
		m.providerErrors, m.indexReady, m.indexChunks,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBuild(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(status).Inc()
	if status == "ok" {
		m.buildDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveQuery(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(status).Inc()
	if status == "ok" {
		m.queryDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ProviderError(provider, class string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, class).Inc()
}

func (m *Metrics) SetIndex(ready bool, chunks int) {
	if m == nil {
		return
	}
	if ready {
		m.indexReady.Set(1)
	} else {
		m.indexReady.Set(0)
	}
	m.indexChunks.Set(float64(chunks))
}
