package datastore

import (
	"time"

	"github.com/tphakala/audiophile/internal/logger"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold is the duration above which gorm queries are logged as warnings.
const slowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

func gormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)
}
