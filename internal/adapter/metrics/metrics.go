// Package metrics exposes service counters in the Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docrag"

// Counter is satisfied by vector stores.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Metrics owns a private registry with the Go and process collectors plus
// the service series. It implements usecase.Observer and upstream.Observer.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ingestedDocs  prometheus.Counter
	ingestedChunk prometheus.Counter
	queries       *prometheus.CounterVec
	upstream      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route", "method"}),
		ingestedDocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_documents_total",
			Help:      "Documents ingested into the collection.",
		}),
		ingestedChunk: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks embedded and stored.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered questions by outcome.",
		}, []string{"status"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Calls to embedding and generation providers by outcome.",
		}, []string{"service", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ingestedDocs,
		m.ingestedChunk,
		m.queries,
		m.upstream,
	)
	return m
}

// WatchStore publishes the store's record count as docrag_store_records.
func (m *Metrics) WatchStore(store Counter) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_records",
		Help:      "Vector records in the open collection.",
	}, func() float64 {
		n, err := store.Count(context.Background())
		if err != nil {
			return -1
		}
		return float64(n)
	}))
}

func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveIngest(documents, chunks int) {
	m.ingestedDocs.Add(float64(documents))
	m.ingestedChunk.Add(float64(chunks))
}

func (m *Metrics) ObserveQuery(status string) {
	m.queries.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveUpstream(service, outcome string) {
	m.upstream.WithLabelValues(service, outcome).Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
