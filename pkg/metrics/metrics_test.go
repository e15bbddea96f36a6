package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCount(t *testing.T, family string, labels map[string]string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
	metric:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			if h := m.GetHistogram(); h != nil {
				return h.GetSampleCount()
			}
			if c := m.GetCounter(); c != nil {
				return uint64(c.GetValue())
			}
		}
	}
	return 0
}

func TestObserveStage(t *testing.T) {
	ObserveStage("metrics_test", time.Now(), nil)
	ObserveStage("metrics_test", time.Now(), errors.New("boom"))
	ObserveStage("metrics_test", time.Now(), errors.New("boom"))

	assert.EqualValues(t, 1, sampleCount(t, "luna_stage_duration_seconds", map[string]string{"stage": "metrics_test", "status": "ok"}))
	assert.EqualValues(t, 2, sampleCount(t, "luna_stage_duration_seconds", map[string]string{"stage": "metrics_test", "status": "error"}))
}

func TestTurnsTotal(t *testing.T) {
	TurnsTotal.WithLabelValues("metrics_test").Inc()
	assert.EqualValues(t, 1, sampleCount(t, "luna_turns_total", map[string]string{"state": "metrics_test"}))
}
