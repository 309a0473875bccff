package ingest

import "github.com/tphakala/audiophile/internal/logger"

// GetLogger returns the ingest module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("ingest")
}
