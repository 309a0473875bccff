// Package metrics provides Prometheus collectors for the ingestion pipeline
// and the event sinks.
package metrics

import "time"

// Status label values.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusSkipped     = "skipped"
	StatusDrifted     = "drifted"
	StatusQuarantined = "quarantined"
	StatusBusy        = "busy"
	StatusCancelled   = "cancelled"
)

// Operation label values for errors_total.
const (
	OpScan     = "scan"
	OpLoad     = "load"
	OpDetect   = "detect"
	OpEvaluate = "evaluate"
	OpCommit   = "commit"
	OpLock     = "lock"
	OpPublish  = "publish"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketFactor2 is the common exponential growth factor.
	BucketFactor2 = 2
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
