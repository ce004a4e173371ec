// Package metrics exposes Prometheus metrics for imports and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cardimport"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	phases       *prometheus.CounterVec
	imports      *prometheus.CounterVec
	notesAdded   prometheus.Counter
	skippedRows  prometheus.Counter
	duration     prometheus.Histogram
	detections   *prometheus.CounterVec
	schemaSource *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_phase_transitions_total",
			Help:      "Import phase transitions by target phase.",
		}, []string{"phase"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Finished import runs by result.",
		}, []string{"result"}),
		notesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_added_total",
			Help:      "Notes emitted to the collection.",
		}),
		skippedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Empty rows skipped during import.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of successful imports.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delimiter_detections_total",
			Help:      "Delimiter decisions by strategy and delimiter.",
		}, []string{"strategy", "delimiter"}),
		schemaSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notetype_resolutions_total",
			Help:      "Note type resolutions by source.",
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.phases, m.imports, m.notesAdded, m.skippedRows, m.duration,
		m.detections, m.schemaSource, m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePhase counts a phase transition. It satisfies core.PhaseObserver.
func (m *Metrics) ObservePhase(_ string, _, to core.ImportPhase) {
	m.phases.WithLabelValues(string(to)).Inc()
	switch to {
	case core.PhaseDone:
		m.imports.WithLabelValues("done").Inc()
	case core.PhaseFailed:
		m.imports.WithLabelValues("failed").Inc()
	}
}

// ObserveAnalysis records how the delimiter and note type were chosen.
func (m *Metrics) ObserveAnalysis(a *core.Analysis) {
	if a == nil {
		return
	}
	m.detections.WithLabelValues(a.Detection.Strategy, core.DelimiterName(a.Detection.Delimiter)).Inc()
	source := string(a.Source)
	if source == "" {
		source = "none"
	}
	m.schemaSource.WithLabelValues(source).Inc()
}

// ObserveOutcome records the counts of a successful import.
func (m *Metrics) ObserveOutcome(o *core.ImportOutcome) {
	if o == nil {
		return
	}
	m.notesAdded.Add(float64(o.Added))
	m.skippedRows.Add(float64(o.SkippedEmpty))
	m.duration.Observe(o.Duration.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// WatchLimiter exports the import limiter's slot usage as gauges.
func (m *Metrics) WatchLimiter(l *core.ImportLimiter) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_active",
			Help:      "Imports currently holding a limiter slot.",
		}, func() float64 { return float64(l.ActiveCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_max_concurrent",
			Help:      "Maximum concurrent imports.",
		}, func() float64 { return float64(l.MaxConcurrent()) }),
	)
}
