package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordFunnel(t *testing.T) {
	m := NewMetrics()
	m.RecordFunnel(StageCancellationStarted, "B")
	m.RecordFunnel(StageCancellationStarted, "B")
	m.RecordFunnel(StageDownsellAccepted, "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.funnel.WithLabelValues(StageCancellationStarted, "B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.funnel.WithLabelValues(StageDownsellAccepted, "")))
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/cancellations", "POST", 200, 15*time.Millisecond)
	m.RecordError("/cancellations", "POST", "VALIDATION_FAILED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/cancellations", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/cancellations", "POST", "VALIDATION_FAILED")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordFunnel(StageReactivated, "")
	})
	assert.Nil(t, m.Registry())
}
