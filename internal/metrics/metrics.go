// Package metrics exposes import counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records finished import jobs. It implements pipeline.Observer.
type Metrics struct {
	registry *prometheus.Registry

	jobs        *prometheus.CounterVec
	works       *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	overflows   prometheus.Counter
	duration    *prometheus.HistogramVec
}

var _ pipeline.Observer = (*Metrics)(nil)

// New registers the import metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corpusload",
			Name:      "import_jobs_total",
			Help:      "Finished import jobs by corpus kind and final status.",
		}, []string{"kind", "status"}),
		works: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corpusload",
			Name:      "works_total",
			Help:      "Works processed by corpus kind and outcome.",
		}, []string{"kind", "status"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corpusload",
			Name:      "diagnostics_total",
			Help:      "Diagnostics raised while building works.",
		}, []string{"kind"}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpusload",
			Name:      "slot_overflows_total",
			Help:      "Lines whose slot fell outside the allocated output.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "corpusload",
			Name:      "import_duration_seconds",
			Help:      "Wall time from build start to the last stored work.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.jobs, m.works, m.diagnostics, m.overflows, m.duration)
	return m
}

// ObserveJob records one finished job.
func (m *Metrics) ObserveJob(snap pipeline.JobSnapshot, report *diag.Report, elapsed time.Duration) {
	kind := string(snap.Kind)
	m.jobs.WithLabelValues(kind, string(snap.Status)).Inc()
	for _, r := range snap.Progress.Results {
		m.works.WithLabelValues(kind, string(r.Status)).Inc()
	}
	for _, d := range report.Items() {
		m.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
	m.overflows.Add(float64(len(report.Overflows())))
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
