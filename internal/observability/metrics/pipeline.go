package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for ingestion passes.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	passesTotal          *prometheus.CounterVec
	filesProcessedTotal  *prometheus.CounterVec
	predictionsPersisted prometheus.Counter
	driftDetectedTotal   prometheus.Counter
	errorsTotal          *prometheus.CounterVec

	passDuration *prometheus.HistogramVec
	fileDuration *prometheus.HistogramVec
	driftPValue  prometheus.Histogram

	passInProgress prometheus.Gauge

	collectors []prometheus.Collector
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() error {
	m.passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiophile_passes_total",
			Help: "Total number of ingestion passes",
		},
		[]string{"status"}, // success, error, busy, cancelled
	)

	m.filesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiophile_files_processed_total",
			Help: "Total number of files handled by ingestion passes",
		},
		[]string{"status"}, // success, drifted, quarantined, skipped, error
	)

	m.predictionsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiophile_predictions_persisted_total",
		Help: "Total number of predictions written to the store",
	})

	m.driftDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiophile_drift_detected_total",
		Help: "Total number of generations whose confidences drifted from the live generation",
	})

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiophile_errors_total",
			Help: "Total number of pipeline errors",
		},
		[]string{"operation", "error_type"},
	)

	m.passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiophile_pass_duration_seconds",
			Help:    "Time taken for a full ingestion pass",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
		[]string{"status"},
	)

	m.fileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiophile_file_duration_seconds",
			Help:    "Time taken to process one file",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~2s
		},
		[]string{"status"},
	)

	m.driftPValue = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiophile_drift_pvalue",
		Help:    "Distribution of drift test p-values",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
	})

	m.passInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiophile_pass_in_progress",
		Help: "1 while an ingestion pass is running",
	})

	m.collectors = []prometheus.Collector{
		m.passesTotal,
		m.filesProcessedTotal,
		m.predictionsPersisted,
		m.driftDetectedTotal,
		m.errorsTotal,
		m.passDuration,
		m.fileDuration,
		m.driftPValue,
		m.passInProgress,
	}
	return nil
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// PassStarted marks a pass as running.
func (m *PipelineMetrics) PassStarted() {
	if m == nil {
		return
	}
	m.passInProgress.Set(1)
}

// RecordPass records a finished, rejected or cancelled pass.
func (m *PipelineMetrics) RecordPass(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(status).Inc()
	if status != StatusBusy {
		m.passInProgress.Set(0)
		m.passDuration.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// RecordFile records the outcome of one file.
func (m *PipelineMetrics) RecordFile(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.filesProcessedTotal.WithLabelValues(status).Inc()
	m.fileDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordPredictions adds n persisted predictions.
func (m *PipelineMetrics) RecordPredictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.predictionsPersisted.Add(float64(n))
}

// RecordDriftTest observes a test p-value and counts it when drifted.
func (m *PipelineMetrics) RecordDriftTest(pValue float64, drifted bool) {
	if m == nil {
		return
	}
	m.driftPValue.Observe(pValue)
	if drifted {
		m.driftDetectedTotal.Inc()
	}
}

// RecordError counts a pipeline error.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
