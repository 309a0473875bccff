package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotifyMetrics contains Prometheus metrics for event sinks (MQTT, Redis,
// shoutrrr). A nil *NotifyMetrics is valid and records nothing.
type NotifyMetrics struct {
	ConnectionStatus  *prometheus.GaugeVec
	MessagesDelivered *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	MessageSize       *prometheus.HistogramVec
	PublishLatency    *prometheus.HistogramVec
	registry          *prometheus.Registry
}

// NewNotifyMetrics creates and registers sink metrics.
func NewNotifyMetrics(registry *prometheus.Registry) (*NotifyMetrics, error) {
	m := &NotifyMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize notify metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notify metrics: %w", err)
	}
	return m, nil
}

func (m *NotifyMetrics) initMetrics() error {
	m.ConnectionStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audiophile_sink_connection_status",
		Help: "Current sink connection status (1 for connected, 0 for disconnected)",
	}, []string{"sink"})

	m.MessagesDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiophile_sink_messages_delivered_total",
		Help: "Total number of events successfully delivered",
	}, []string{"sink"})

	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiophile_sink_errors_total",
		Help: "Total number of sink delivery errors",
	}, []string{"sink"})

	m.MessageSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiophile_sink_message_size_bytes",
		Help:    "Size of published events in bytes",
		Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
	}, []string{"sink"})

	m.PublishLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiophile_sink_publish_latency_seconds",
		Help:    "Latency of publish operations in seconds",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	}, []string{"sink"})

	return nil
}

// Describe implements the Collector interface
func (m *NotifyMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ConnectionStatus.Describe(ch)
	m.MessagesDelivered.Describe(ch)
	m.Errors.Describe(ch)
	m.MessageSize.Describe(ch)
	m.PublishLatency.Describe(ch)
}

// Collect implements the Collector interface
func (m *NotifyMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ConnectionStatus.Collect(ch)
	m.MessagesDelivered.Collect(ch)
	m.Errors.Collect(ch)
	m.MessageSize.Collect(ch)
	m.PublishLatency.Collect(ch)
}

// UpdateConnectionStatus sets the connection gauge of a sink.
func (m *NotifyMetrics) UpdateConnectionStatus(sink string, connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.WithLabelValues(sink).Set(1)
	} else {
		m.ConnectionStatus.WithLabelValues(sink).Set(0)
	}
}

// RecordDelivery records a successful publish of size bytes.
func (m *NotifyMetrics) RecordDelivery(sink string, size int, latency time.Duration) {
	if m == nil {
		return
	}
	m.MessagesDelivered.WithLabelValues(sink).Inc()
	m.MessageSize.WithLabelValues(sink).Observe(float64(size))
	m.PublishLatency.WithLabelValues(sink).Observe(latency.Seconds())
}

// RecordError counts a failed publish.
func (m *NotifyMetrics) RecordError(sink string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(sink).Inc()
}
