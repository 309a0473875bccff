// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default pipeline constants.
const (
	DefaultSampleRate   = 8000
	DefaultWindowLength = 8000
	DefaultStride       = 8000
	DefaultThreshold    = 0.9
	DefaultSignificance = 0.05
)

// DefaultKeywords are the utterances registered when no models are configured.
var DefaultKeywords = []string{"call", "is", "recorded"}

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "audiophile")

	v.SetDefault("audio.samplerate", DefaultSampleRate)
	v.SetDefault("audio.windowlength", DefaultWindowLength)
	v.SetDefault("audio.stride", DefaultStride)
	v.SetDefault("audio.resampler", "soxr")
	v.SetDefault("audio.extensions", []string{".wav", ".flac"})

	v.SetDefault("detection.threshold", DefaultThreshold)
	models := make([]map[string]any, 0, len(DefaultKeywords)*2)
	for _, keyword := range DefaultKeywords {
		for _, id := range []string{"v1", "v2"} {
			models = append(models, map[string]any{"keyword": keyword, "id": id, "type": "random"})
		}
	}
	v.SetDefault("detection.models", models)

	v.SetDefault("drift.significance", DefaultSignificance)
	v.SetDefault("drift.policy", "observe")
	v.SetDefault("drift.retain", 50)

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.baseurl", "")
	v.SetDefault("media.recursive", false)

	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.interval", time.Second)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.lock", "local")
	v.SetDefault("ingest.lockttl", 5*time.Minute)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "audiophile.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.postgres.enabled", false)
	v.SetDefault("output.postgres.port", "5432")
	v.SetDefault("output.postgres.sslmode", "disable")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/audiophile.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "audiophile")
	v.SetDefault("mqtt.clientid", "audiophile")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.title", "audiophile drift alert")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "audiophile:events")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.cachettl", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
}
