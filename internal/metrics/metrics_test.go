package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New()
	at := time.Unix(1700000000, 0)
	m.ObserveStage("aggregate", 98, 2, 3*time.Second, true, at)
	m.ObserveStage("aggregate", 10, 0, time.Second, false, at.Add(time.Hour))

	assert.Equal(t, 108.0, testutil.ToFloat64(m.Records.WithLabelValues("aggregate", "processed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("aggregate", "skipped")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccess.WithLabelValues("aggregate")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestCountersAndGauges(t *testing.T) {
	m := New()
	m.PredictorCalls.Add(7)
	m.Verdicts.WithLabelValues("POS").Inc()
	m.Verdicts.WithLabelValues("NEG").Add(2)
	m.ECE.Set(0.042)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.PredictorCalls))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("NEG")))
	assert.Equal(t, 0.042, testutil.ToFloat64(m.ECE))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Verdicts))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.MacroF1.Set(0.81)
	m.LabelerFailures.Inc()

	path := filepath.Join(t.TempDir(), "finsent.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "finsent_macro_f1 0.81"), text)
	assert.Contains(t, text, "finsent_labeler_failures_total 1")
}

func TestRegistryIsIsolated(t *testing.T) {
	a, b := New(), New()
	a.PredictorCalls.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PredictorCalls))
	n, err := testutil.GatherAndCount(a.Registry(), "finsent_predictor_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
