package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the HTTP server. Each server
// owns its registry so several can coexist in one process.
type Metrics struct {
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	Classifications  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "envgap_pipeline_runs_total",
			Help: "Total number of index pipeline runs, by outcome",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "envgap_pipeline_duration_seconds",
			Help:    "Duration of index pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "envgap_classifications_total",
			Help: "Total number of metric classifications, by break mode",
		}, []string{"mode"}),
		registry: reg,
	}
}

// ObservePipeline records one pipeline run.
func (m *Metrics) ObservePipeline(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
