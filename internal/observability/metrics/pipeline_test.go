package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.PassStarted()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.passInProgress), 0)

	m.RecordFile(StatusSuccess, 10*time.Millisecond)
	m.RecordFile(StatusSuccess, 20*time.Millisecond)
	m.RecordFile(StatusSkipped, time.Millisecond)
	m.RecordPredictions(6)
	m.RecordPredictions(0)
	m.RecordDriftTest(0.01, true)
	m.RecordDriftTest(0.5, false)
	m.RecordError(OpLoad, "not-found")
	m.RecordPass(StatusSuccess, time.Second)
	m.RecordPass(StatusBusy, 0)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.filesProcessedTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.filesProcessedTotal.WithLabelValues(StatusSkipped)), 0)
	assert.InDelta(t, 6.0, testutil.ToFloat64(m.predictionsPersisted), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.driftDetectedTotal), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpLoad, "not-found")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues(StatusBusy)), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.passInProgress), 0)

	// One series, two observations.
	assert.Equal(t, 1, testutil.CollectAndCount(m.driftPValue))
	var sample dto.Metric
	require.NoError(t, m.driftPValue.Write(&sample))
	assert.Equal(t, uint64(2), sample.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.51, sample.GetHistogram().GetSampleSum(), 1e-9)
}

func TestPipelineMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var p *PipelineMetrics
	p.PassStarted()
	p.RecordPass(StatusSuccess, time.Second)
	p.RecordFile(StatusError, time.Second)
	p.RecordPredictions(3)
	p.RecordDriftTest(0.2, false)
	p.RecordError(OpCommit, "database")

	var n *NotifyMetrics
	n.UpdateConnectionStatus("mqtt", true)
	n.RecordDelivery("mqtt", 10, time.Millisecond)
	n.RecordError("mqtt")
}

func TestNotifyMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewNotifyMetrics(registry)
	require.NoError(t, err)

	m.UpdateConnectionStatus("mqtt", true)
	m.RecordDelivery("mqtt", 128, 5*time.Millisecond)
	m.RecordDelivery("redis", 64, time.Millisecond)
	m.RecordError("shoutrrr")
	m.UpdateConnectionStatus("mqtt", false)

	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ConnectionStatus.WithLabelValues("mqtt")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("mqtt")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("redis")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("shoutrrr")), 0)
}
