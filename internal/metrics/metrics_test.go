package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("formula", false, time.Millisecond)
		m.TypeSwitch()
		m.ObserveWave(3)
		m.CycleBreak()
		m.Quota()
		m.StreamUpdate("stale")
		m.StreamStarted()
		m.StreamFinished(errors.New("x"))
	})
}

func TestCounters(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveEvaluation("formula", false, time.Millisecond)
	m.ObserveEvaluation("formula", true, time.Millisecond)
	m.ObserveEvaluation("upstream", false, time.Millisecond)
	m.CycleBreak()
	m.CycleBreak()
	m.StreamUpdate("applied")
	m.StreamStarted()
	m.StreamStarted()
	m.StreamFinished(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("formula", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("formula", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("upstream", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CycleBreaks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamUpdates.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamErrors))
}

func TestDump(t *testing.T) {
	reg, m := NewRegistry()
	m.TypeSwitch()

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, reg))
	assert.Contains(t, buf.String(), "# TYPE ggraph_type_switches_total counter")
	assert.Contains(t, buf.String(), "ggraph_type_switches_total 1")
}
