// Package notify delivers pipeline events to external sinks: MQTT topics,
// a Redis pub/sub channel and shoutrrr services for drift alerts.
package notify

import (
	"encoding/json"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	// EventGenerationCommitted is sent when a generation becomes live.
	EventGenerationCommitted EventType = "generation.committed"
	// EventGenerationQuarantined is sent when a drifted generation was stored but not promoted.
	EventGenerationQuarantined EventType = "generation.quarantined"
	// EventDriftDetected is sent when a candidate generation drifted from the live one.
	EventDriftDetected EventType = "drift.detected"
	// EventPassCompleted is sent at the end of every ingestion pass.
	EventPassCompleted EventType = "pass.completed"
)

// Event is the JSON payload published to every sink.
type Event struct {
	Type              EventType `json:"type"`
	FileID            uint      `json:"file_id,omitempty"`
	FileName          string    `json:"file_name,omitempty"`
	Duration          int       `json:"duration,omitempty"`
	Reference         string    `json:"reference,omitempty"`
	PreviousReference string    `json:"previous_reference,omitempty"`
	Predictions       int       `json:"predictions"`
	Statistic         float64   `json:"statistic,omitempty"`
	PValue            float64   `json:"p_value,omitempty"`
	Policy            string    `json:"policy,omitempty"`
	Pass              *PassInfo `json:"pass,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// PassInfo summarises a finished pass.
type PassInfo struct {
	Files       int     `json:"files"`
	Committed   int     `json:"committed"`
	Skipped     int     `json:"skipped"`
	Drifted     int     `json:"drifted"`
	Failed      int     `json:"failed"`
	Predictions int     `json:"predictions"`
	Seconds     float64 `json:"seconds"`
}

// Kind returns the last segment of the event type, used as topic suffix.
func (e *Event) Kind() string {
	switch e.Type {
	case EventGenerationCommitted, EventGenerationQuarantined:
		return "generation"
	case EventDriftDetected:
		return "drift"
	case EventPassCompleted:
		return "pass"
	}
	return "event"
}

// Marshal encodes the event, stamping Timestamp when unset.
func (e *Event) Marshal() ([]byte, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return json.Marshal(e)
}
