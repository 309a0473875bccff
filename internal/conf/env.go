// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"media.dir", "AUDIOPHILE_MEDIA_DIR", nil},
		{"media.baseurl", "AUDIOPHILE_BASE_URL", nil},
		{"audio.samplerate", "AUDIOPHILE_SAMPLE_RATE", validateEnvPositiveInt},
		{"audio.windowlength", "AUDIOPHILE_WINDOW_LENGTH", validateEnvPositiveInt},
		{"audio.stride", "AUDIOPHILE_STRIDE", validateEnvPositiveInt},
		{"detection.threshold", "AUDIOPHILE_THRESHOLD", validateEnvUnitInterval},
		{"drift.significance", "AUDIOPHILE_DRIFT_SIGNIFICANCE", validateEnvUnitInterval},
		{"drift.policy", "AUDIOPHILE_DRIFT_POLICY", validateEnvDriftPolicy},
		{"ingest.interval", "AUDIOPHILE_INTERVAL", validateEnvDuration},
		{"ingest.workers", "AUDIOPHILE_WORKERS", validateEnvPositiveInt},
		{"output.sqlite.path", "AUDIOPHILE_SQLITE_PATH", nil},
		{"output.mysql.password", "AUDIOPHILE_MYSQL_PASSWORD", nil},
		{"output.postgres.password", "AUDIOPHILE_POSTGRES_PASSWORD", nil},
		{"sentry.dsn", "AUDIOPHILE_SENTRY_DSN", nil},
		{"mqtt.password", "AUDIOPHILE_MQTT_PASSWORD", nil},
		{"redis.url", "AUDIOPHILE_REDIS_URL", nil},
		{"webserver.port", "AUDIOPHILE_PORT", validateEnvPort},
		{"debug", "AUDIOPHILE_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvUnitInterval(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %g", f)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be 1-65535, got '%s'", value)
	}
	return nil
}

func validateEnvDriftPolicy(value string) error {
	switch value {
	case DriftPolicyObserve, DriftPolicyQuarantine:
		return nil
	default:
		return fmt.Errorf("must be %q or %q", DriftPolicyObserve, DriftPolicyQuarantine)
	}
}
