// Package metrics exposes extraction counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receiptlens"

// Recorder holds the service collectors. All methods are safe for
// concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	receipts     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	skippedLines *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		receipts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_parsed_total",
			Help:      "Receipts parsed successfully, by market.",
		}, []string{"market"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Failed extractions, by error kind.",
		}, []string{"kind"}),
		skippedLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_lines_total",
			Help:      "Product lines skipped during assembly, by market.",
		}, []string{"market"}),
		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Recoverable parse diagnostics, by kind.",
		}, []string{"kind"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting and parsing one document.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"source"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ReceiptParsed(market string, skipped int, diagnosticKinds []string) {
	r.receipts.WithLabelValues(market).Inc()
	if skipped > 0 {
		r.skippedLines.WithLabelValues(market).Add(float64(skipped))
	}
	for _, kind := range diagnosticKinds {
		r.diagnostics.WithLabelValues(kind).Inc()
	}
}

func (r *Recorder) ExtractionFailed(kind string) {
	r.failures.WithLabelValues(kind).Inc()
}

func (r *Recorder) CacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveDuration records the time elapsed since start under source
// ("pdf" or "lines")
func (r *Recorder) ObserveDuration(source string, start time.Time) {
	r.duration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
