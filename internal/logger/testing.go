package logger

import (
	"io"
	"log/slog"
	"time"
)

// NewSlogLogger creates a Logger writing JSON records to w. A nil writer
// discards output. It is used by tests and by adapters that need a logger
// before the central logger exists.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = io.Discard
	}
	if tz == nil {
		tz = time.UTC
	}
	lvl := parseLogLevel(string(level))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Time(slog.TimeKey, a.Value.Time().In(tz))
			}
			return a
		},
	})
	return &moduleLogger{logger: slog.New(handler), level: lvl}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, time.UTC)
}
