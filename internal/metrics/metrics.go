// Package metrics bundles Prometheus collectors for a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries all collectors on a dedicated registry. A nil *Metrics is
// valid and every method on it is a no-op.
type Metrics struct {
	Registry         *prometheus.Registry
	PagesVisited     prometheus.Counter
	RecordsExtracted prometheus.Counter
	StepDuration     *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extractor_pages_visited_total",
		Help: "Listing pages read during extraction.",
	})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extractor_records_total",
		Help: "Product records extracted.",
	})
	steps := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extractor_navigation_step_seconds",
			Help:    "Time spent completing each navigation step.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_errors_total",
			Help: "Errors by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(pages, records, steps, errorsTotal)

	return &Metrics{
		Registry:         registry,
		PagesVisited:     pages,
		RecordsExtracted: records,
		StepDuration:     steps,
		ErrorsTotal:      errorsTotal,
	}
}

// IncPage counts one listing page read.
func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesVisited.Inc()
}

// AddRecords counts extracted records.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsExtracted.Add(float64(n))
}

// ObserveStep records how long a navigation step took.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// IncError counts an error by kind label.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
