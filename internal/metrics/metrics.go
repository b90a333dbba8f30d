// Package metrics exposes session activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paperqa/internal/domain"
	"paperqa/internal/monitor"
)

// Metrics holds the paperqa collectors. It implements domain.Observer.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsLoaded prometheus.Counter
	Queries         *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	QueryDuration   prometheus.Histogram
	Chunks          prometheus.Gauge
	EmbeddedChunks  prometheus.Gauge

	CPUPercent prometheus.Gauge
	RAMPercent prometheus.Gauge
}

var _ domain.Observer = (*Metrics)(nil)

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	// model calls are slow; default buckets stop at 10s
	buckets := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

	return &Metrics{
		registry: reg,
		DocumentsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "paperqa_documents_loaded_total",
			Help: "Total number of documents loaded",
		}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paperqa_queries_total",
			Help: "Total number of answered questions by outcome",
		}, []string{"outcome"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paperqa_errors_total",
			Help: "Total number of failed operations",
		}, []string{"operation"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperqa_load_duration_seconds",
			Help:    "Time to chunk and embed a document",
			Buckets: buckets,
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperqa_query_duration_seconds",
			Help:    "Time to answer a question",
			Buckets: buckets,
		}),
		Chunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paperqa_chunks",
			Help: "Chunks of the loaded document",
		}),
		EmbeddedChunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paperqa_embedded_chunks",
			Help: "Chunks of the loaded document with an embedding",
		}),
		CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paperqa_host_cpu_percent",
			Help: "Host CPU utilisation at the last sample",
		}),
		RAMPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paperqa_host_ram_percent",
			Help: "Host memory utilisation at the last sample",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DocumentLoaded(evt domain.DocumentLoaded) {
	m.DocumentsLoaded.Inc()
	m.LoadDuration.Observe(evt.Duration.Seconds())
	m.Chunks.Set(float64(evt.Chunks))
	m.EmbeddedChunks.Set(float64(evt.Embedded))
}

func (m *Metrics) QueryAnswered(evt domain.QueryAnswered) {
	m.Queries.WithLabelValues(Outcome(evt.Err)).Inc()
	m.QueryDuration.Observe(evt.Duration.Seconds())
}

func (m *Metrics) Error(operation, _ string) {
	m.Errors.WithLabelValues(operation).Inc()
}

// ObserveUsage records a resource sample. It matches monitor.Options.OnSample.
func (m *Metrics) ObserveUsage(u monitor.Usage) {
	m.CPUPercent.Set(u.CPUPercent)
	m.RAMPercent.Set(u.RAMPercent)
}

// Outcome classifies an Ask error for the queries counter.
func Outcome(err error) string {
	var be *domain.BackendError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoDocument):
		return "no_document"
	case errors.Is(err, domain.ErrEmptyIndex):
		return "empty_index"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding_failed"
	case errors.As(err, &be):
		return "backend_error"
	default:
		return "error"
	}
}
