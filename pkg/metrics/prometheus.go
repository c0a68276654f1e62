package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter subscribes to a Recorder as an Observer and mirrors
// each real occurrence into the matching Prometheus metric: a CounterVec
// for op count/success/error, a HistogramVec for op latency, and a GaugeVec
// for the latest host-resource sample. It owns its own registry rather than
// registering against the package-level default registerer, so that two
// independently-constructed exporters in the same process never collide.
type PrometheusExporter struct {
	registry *prometheus.Registry

	opTotal   *prometheus.CounterVec
	opSuccess *prometheus.CounterVec
	opErrors  *prometheus.CounterVec
	opLatency *prometheus.HistogramVec

	sample *prometheus.GaugeVec
}

// NewPrometheusExporter builds an exporter and subscribes it to recorder.
// Every exported counter and histogram observation happens exactly once per
// Recorder notification rather than being re-derived from a cumulative
// Snapshot on every scrape, so nothing is double-counted.
func NewPrometheusExporter(recorder *Recorder) *PrometheusExporter {
	registry := prometheus.NewRegistry()

	e := &PrometheusExporter{
		registry: registry,
		opTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kairos",
			Name:      "operation_total",
			Help:      "Total invocations per operation.",
		}, []string{"operation"}),
		opSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kairos",
			Name:      "operation_success_total",
			Help:      "Successful invocations per operation.",
		}, []string{"operation"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kairos",
			Name:      "operation_error_total",
			Help:      "Failed invocations per operation.",
		}, []string{"operation"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kairos",
			Name:      "operation_latency_seconds",
			Help:      "Operation latency distribution.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
		}, []string{"operation"}),
		sample: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kairos",
			Name:      "sample_value",
			Help:      "Latest value of a sampled host-resource metric.",
		}, []string{"name", "unit"}),
	}

	registry.MustRegister(e.opTotal, e.opSuccess, e.opErrors, e.opLatency, e.sample)
	recorder.Subscribe(e)

	return e
}

// ObserveOperation implements Observer. Called once per completed
// operation: opTotal and either opSuccess or opErrors increment by exactly
// one, and opLatency observes exactly one duration.
func (e *PrometheusExporter) ObserveOperation(opName string, seconds float64, success bool) {
	e.opTotal.WithLabelValues(opName).Inc()
	if success {
		e.opSuccess.WithLabelValues(opName).Inc()
	} else {
		e.opErrors.WithLabelValues(opName).Inc()
	}
	e.opLatency.WithLabelValues(opName).Observe(seconds)
}

// ObserveEvent implements Observer. Sampled events are host-resource
// readings rather than counted occurrences, so they replace the previous
// value of a Gauge instead of accumulating.
func (e *PrometheusExporter) ObserveEvent(ev Event) {
	e.sample.WithLabelValues(ev.Name, ev.Unit).Set(ev.Value)
}

// Handler returns an http.Handler serving the exporter's registry in the
// Prometheus text format. Nothing in this module starts an HTTP server on
// its own; callers mount this on their own mux.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
