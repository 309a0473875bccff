// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError sends the error to Sentry with paths and URLs scrubbed
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  fmt.Sprintf("%s %s", component, ee.Category),
			Value: message,
		}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryDatabase, CategoryConfiguration, CategoryState:
		return sentry.LevelError
	case CategoryNotFound, CategoryValidation, CategoryDrift:
		return sentry.LevelInfo
	default:
		return sentry.LevelWarning
	}
}

var (
	telemetryMu             sync.RWMutex
	globalTelemetryReporter TelemetryReporter
)

// SetTelemetryReporter installs the global telemetry reporter. Passing nil
// disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// InitSentry configures the Sentry SDK and installs a SentryReporter.
// An empty DSN leaves telemetry disabled.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		SetTelemetryReporter(nil)
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	SetTelemetryReporter(NewSentryReporter(true))
	return nil
}

// FlushTelemetry waits up to timeout for queued Sentry events.
func FlushTelemetry(timeout time.Duration) {
	if hasActiveReporting.Load() {
		sentry.Flush(timeout)
	}
}

func reportToTelemetry(ee *EnhancedError) {
	telemetryMu.RLock()
	reporter := globalTelemetryReporter
	telemetryMu.RUnlock()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	credsRegex    = regexp.MustCompile(`(\w+://)[^:@/\s]+:[^@/\s]+@`)
	homePathRegex = regexp.MustCompile(`/(home|Users)/[^/\s]+`)
)

// scrubMessage removes URL query strings, credentials and home directory names
func scrubMessage(message string) string {
	message = credsRegex.ReplaceAllString(message, "$1[redacted]@")
	message = urlQueryRegex.ReplaceAllString(message, "$1?[redacted]")
	return homePathRegex.ReplaceAllString(message, "/$1/[user]")
}
