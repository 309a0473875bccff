package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/observability/metrics"
)

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Pipeline.RecordPass(metrics.StatusSuccess, 250*time.Millisecond)
	m.Notify.RecordDelivery("mqtt", 100, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `audiophile_passes_total{status="success"} 1`)
	assert.Contains(t, string(body), `audiophile_sink_messages_delivered_total{sink="mqtt"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
