// Package conf loads and validates audiophile settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/logger"
)

// AudioSettings controls decoding and windowing.
type AudioSettings struct {
	SampleRate   int      // target sample rate in Hz every file is resampled to
	WindowLength int      // samples per inference window
	Stride       int      // samples between window starts
	Resampler    string   // "soxr" (band-limited) or "cubic"
	Extensions   []string // recognised file extensions, lower case with dot
}

// ModelSettings describes one mock model registered under a keyword.
type ModelSettings struct {
	Keyword string  // utterance the model scores
	ID      string  // model identifier stored with each prediction
	Type    string  // "random" or "constant"
	Seed    int64   // seed for random models, 0 picks a time based seed
	Value   float64 // confidence returned by constant models
}

// DetectionSettings controls the detection engine.
type DetectionSettings struct {
	Threshold float64         // predictions are kept when confidence is strictly above this
	Models    []ModelSettings // registry contents, in registration order
}

// DriftSettings controls the drift evaluator.
type DriftSettings struct {
	Significance float64 // KS test alpha, drift when p-value < significance
	Policy       string  // "observe" commits drifted batches, "quarantine" withholds promotion
	Retain       int     // number of drifted batches kept in memory for inspection
}

// MediaSettings locates the recordings.
type MediaSettings struct {
	Dir       string // media directory scanned on each pass
	BaseURL   string // optional public URL prefix for files, echoed by the API
	Recursive bool   // scan subdirectories
}

// IngestSettings controls the periodic pipeline.
type IngestSettings struct {
	Enabled  bool          // run the interval scheduler in serve mode
	Interval time.Duration // time between passes
	Workers  int           // files processed concurrently, 1 is sequential
	Lock     string        // "local" or "redis" per-file locking
	LockTTL  time.Duration // expiry of distributed file locks
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// PostgresSettings contains settings for the PostgreSQL store.
type PostgresSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
	SSLMode  string
}

// OutputSettings selects the prediction store.
type OutputSettings struct {
	SQLite   SQLiteSettings
	MySQL    MySQLSettings
	Postgres PostgresSettings
}

// SentrySettings contains error telemetry settings.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// MQTTSettings contains settings for event publishing over MQTT.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT (tcp://host:port)
	Topic    string // topic prefix, events go to <topic>/<kind>
	ClientID string
	Username string
	Password string
	Retain   bool
}

// NotificationSettings configures shoutrrr drift alerts.
type NotificationSettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs
	Title   string
}

// RedisSettings configures the optional redis connection used for
// distributed file locks and event fan-out.
type RedisSettings struct {
	Enabled bool
	URL     string // redis://[:password@]host:port/db
	Channel string // pub/sub channel for pipeline events
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled  bool
	Port     string
	CacheTTL time.Duration // live prediction read cache lifetime
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
}

// MainSettings holds process wide values.
type MainSettings struct {
	Name string
}

// Settings is the complete configuration.
type Settings struct {
	Debug        bool
	Main         MainSettings
	Audio        AudioSettings
	Detection    DetectionSettings
	Drift        DriftSettings
	Media        MediaSettings
	Ingest       IngestSettings
	Output       OutputSettings
	Logging      logger.LoggingConfig
	Sentry       SentrySettings
	MQTT         MQTTSettings
	Notification NotificationSettings
	Redis        RedisSettings
	WebServer    WebServerSettings
	Metrics      MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads settings from the first config.yaml found on the default
// search path. A missing file is not an error; defaults apply.
func Load() (*Settings, error) {
	return LoadFile("")
}

// LoadFile reads settings from configFile, or from the default search path
// when configFile is empty, then applies environment overrides and validates.
func LoadFile(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaultConfig(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Build()
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// Setting returns the most recently loaded settings, or nil.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// defaultConfigPaths lists the directories searched for config.yaml.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "audiophile"))
	}
	return append(paths, "/etc/audiophile")
}

// SaveYAML writes settings to path with owner-only permissions.
func SaveYAML(path string, settings *Settings) error {
	data, err := yaml.Marshal(toYAML(settings))
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return os.Rename(tmp, path)
}

// toYAML lowers the top level keys so the output round-trips through viper.
func toYAML(s *Settings) map[string]any {
	return map[string]any{
		"debug":        s.Debug,
		"main":         s.Main,
		"audio":        s.Audio,
		"detection":    s.Detection,
		"drift":        s.Drift,
		"media":        s.Media,
		"ingest":       s.Ingest,
		"output":       s.Output,
		"logging":      s.Logging,
		"sentry":       s.Sentry,
		"mqtt":         s.MQTT,
		"notification": s.Notification,
		"redis":        s.Redis,
		"webserver":    s.WebServer,
		"metrics":      s.Metrics,
	}
}
