package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fincast"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecastsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	inference      *prometheus.HistogramVec
	inferenceErrs  *prometheus.CounterVec
	ledgerEntries  *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		forecastsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Total number of forecast requests by source and outcome",
			},
			[]string{"source", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		inference: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "inference_duration_seconds",
				Help:      "Duration of single-step model inference",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"model"},
		),
		inferenceErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "inference_errors_total",
				Help:      "Failed single-step inferences",
			},
			[]string{"model"},
		),
		ledgerEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "entries_ingested_total",
				Help:      "Ledger entries stored from the ingestion topic",
			},
			[]string{"kind"},
		),
	}
}

// RecordForecast counts a forecast attempt.
func (r *Recorder) RecordForecast(source, status string) {
	r.forecastsTotal.WithLabelValues(source, status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordInference records one PredictOne call.
func (r *Recorder) RecordInference(model string, seconds float64, ok bool) {
	r.inference.WithLabelValues(model).Observe(seconds)
	if !ok {
		r.inferenceErrs.WithLabelValues(model).Inc()
	}
}

// RecordLedgerEntry counts a stored ledger entry.
func (r *Recorder) RecordLedgerEntry(kind string) {
	r.ledgerEntries.WithLabelValues(kind).Inc()
}
