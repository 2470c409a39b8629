// Package metrics defines the Prometheus collectors the engine reports to.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics dependency without nil checks at every call site.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "ggraph"

// Metrics holds every collector ggraph exports.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	TypeSwitches       prometheus.Counter
	WaveSize           prometheus.Histogram
	CycleBreaks        prometheus.Counter
	QuotaExceeded      prometheus.Counter
	StreamUpdates      *prometheus.CounterVec
	StreamErrors       prometheus.Counter
	ActiveStreams      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Formula evaluations by trigger and result.",
			},
			[]string{"trigger", "result"},
		),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one node, including input resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		TypeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "type_switches_total",
			Help:      "Formula edits that changed the value type and cleared contributions.",
		}),
		WaveSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wave_evaluations",
			Help:      "Evaluations performed per eager propagation wave.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 64, 256, 1024},
		}),
		CycleBreaks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_breaks_total",
			Help:      "Re-evaluations skipped because the node already ran in the wave.",
		}),
		QuotaExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_exceeded_total",
			Help:      "Waves stopped at the max steps limit.",
		}),
		StreamUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_updates_total",
				Help:      "Text generation updates by outcome.",
			},
			[]string{"result"},
		),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Text generation streams that ended with an error.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Text generation streams currently open.",
		}),
	}

	reg.MustRegister(
		m.Evaluations,
		m.EvaluationDuration,
		m.TypeSwitches,
		m.WaveSize,
		m.CycleBreaks,
		m.QuotaExceeded,
		m.StreamUpdates,
		m.StreamErrors,
		m.ActiveStreams,
	)
	return m
}

// NewRegistry returns a fresh registry with the collectors registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}

// ObserveEvaluation records one evaluation.
func (m *Metrics) ObserveEvaluation(trigger string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.Evaluations.WithLabelValues(trigger, result).Inc()
	m.EvaluationDuration.Observe(d.Seconds())
}

// TypeSwitch records a value type change.
func (m *Metrics) TypeSwitch() {
	if m == nil {
		return
	}
	m.TypeSwitches.Inc()
}

// ObserveWave records the number of evaluations in a finished wave.
func (m *Metrics) ObserveWave(evaluations int) {
	if m == nil {
		return
	}
	m.WaveSize.Observe(float64(evaluations))
}

// CycleBreak records a skipped re-evaluation.
func (m *Metrics) CycleBreak() {
	if m == nil {
		return
	}
	m.CycleBreaks.Inc()
}

// Quota records a wave stopped by the step limit.
func (m *Metrics) Quota() {
	if m == nil {
		return
	}
	m.QuotaExceeded.Inc()
}

// StreamUpdate records a stream update as "applied" or "stale".
func (m *Metrics) StreamUpdate(result string) {
	if m == nil {
		return
	}
	m.StreamUpdates.WithLabelValues(result).Inc()
}

// StreamStarted and StreamFinished track open streams.
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamFinished(err error) {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
	if err != nil {
		m.StreamErrors.Inc()
	}
}

// Dump writes every metric in g in the Prometheus text exposition format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
