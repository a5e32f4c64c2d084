// Package metrics holds the pipeline's Prometheus collectors. Runs are batch
// jobs, so collectors live on a per-run registry that can be written out for
// the node exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "finsent"

// Metrics holds the collectors for one process.
type Metrics struct {
	Records         *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	PredictorCalls  prometheus.Counter
	Sentences       prometheus.Counter
	Verdicts        *prometheus.CounterVec
	LabelerFailures prometheus.Counter
	ECE             prometheus.Gauge
	MacroF1         prometheus.Gauge
	LastSuccess     *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records handled per stage, by result (processed, skipped, truncated).",
		}, []string{"stage", "result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a stage run in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"stage"}),
		PredictorCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictor_calls_total",
			Help:      "Sub-batches sent to the sentence classifier.",
		}),
		Sentences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_scored_total",
			Help:      "Sentences scored by the sentence classifier.",
		}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Article verdicts produced, by overall label.",
		}, []string{"label"}),
		LabelerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labeler_failures_total",
			Help:      "Articles the gold labeler gave up on.",
		}),
		ECE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expected_calibration_error",
			Help:      "ECE of the last evaluation.",
		}),
		MacroF1: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "macro_f1",
			Help:      "Macro-averaged F1 of the last evaluation.",
		}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run, by stage.",
		}, []string{"stage"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.Records, m.StageDuration, m.PredictorCalls, m.Sentences, m.Verdicts,
		m.LabelerFailures, m.ECE, m.MacroF1, m.LastSuccess,
	)
	return m
}

// ObserveStage records the outcome of one stage run.
func (m *Metrics) ObserveStage(stage string, processed, skipped int, d time.Duration, ok bool, at time.Time) {
	m.Records.WithLabelValues(stage, "processed").Add(float64(processed))
	m.Records.WithLabelValues(stage, "skipped").Add(float64(skipped))
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if ok {
		m.LastSuccess.WithLabelValues(stage).Set(float64(at.Unix()))
	}
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
