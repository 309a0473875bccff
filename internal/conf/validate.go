// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

// Drift policies.
const (
	DriftPolicyObserve    = "observe"
	DriftPolicyQuarantine = "quarantine"
)

// Per-file lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateAudioSettings,
		validateDetectionSettings,
		validateDriftSettings,
		validateIngestSettings,
		validateOutputSettings,
		validateMQTTSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(s *Settings) error {
	a := &s.Audio
	switch {
	case a.SampleRate <= 0:
		return fmt.Errorf("audio sample rate must be positive, got %d", a.SampleRate)
	case a.WindowLength <= 0:
		return fmt.Errorf("audio window length must be positive, got %d", a.WindowLength)
	case a.Stride <= 0:
		return fmt.Errorf("audio stride must be positive, got %d", a.Stride)
	}
	if a.Resampler != "soxr" && a.Resampler != "cubic" {
		return fmt.Errorf("audio resampler must be soxr or cubic, got %q", a.Resampler)
	}
	for i, ext := range a.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		a.Extensions[i] = ext
	}
	return nil
}

func validateDetectionSettings(s *Settings) error {
	d := &s.Detection
	if d.Threshold < 0 || d.Threshold > 1 {
		return fmt.Errorf("detection threshold must be between 0 and 1, got %g", d.Threshold)
	}
	seen := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		if m.Keyword == "" || m.ID == "" {
			return fmt.Errorf("detection model needs keyword and id: %+v", m)
		}
		if !slices.Contains([]string{"random", "constant"}, m.Type) {
			return fmt.Errorf("detection model %s/%s has unknown type %q", m.Keyword, m.ID, m.Type)
		}
		key := m.Keyword + "/" + m.ID
		if seen[key] {
			return fmt.Errorf("detection model %s registered twice", key)
		}
		seen[key] = true
	}
	return nil
}

func validateDriftSettings(s *Settings) error {
	d := &s.Drift
	if d.Significance <= 0 || d.Significance >= 1 {
		return fmt.Errorf("drift significance must be in (0, 1), got %g", d.Significance)
	}
	if d.Policy != DriftPolicyObserve && d.Policy != DriftPolicyQuarantine {
		return fmt.Errorf("drift policy must be %s or %s, got %q", DriftPolicyObserve, DriftPolicyQuarantine, d.Policy)
	}
	if d.Retain < 0 {
		return fmt.Errorf("drift retain must not be negative, got %d", d.Retain)
	}
	return nil
}

func validateIngestSettings(s *Settings) error {
	i := &s.Ingest
	if i.Workers < 1 {
		i.Workers = 1
	}
	if i.Enabled && i.Interval <= 0 {
		return fmt.Errorf("ingest interval must be positive, got %s", i.Interval)
	}
	if i.Lock != LockLocal && i.Lock != LockRedis {
		return fmt.Errorf("ingest lock must be local or redis, got %q", i.Lock)
	}
	if i.Lock == LockRedis && !s.Redis.Enabled {
		return fmt.Errorf("ingest lock redis requires redis.enabled")
	}
	return nil
}

func validateOutputSettings(s *Settings) error {
	enabled := 0
	for _, on := range []bool{s.Output.SQLite.Enabled, s.Output.MySQL.Enabled, s.Output.Postgres.Enabled} {
		if on {
			enabled++
		}
	}
	if enabled != 1 {
		return fmt.Errorf("exactly one of output.sqlite, output.mysql, output.postgres must be enabled, got %d", enabled)
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path is required")
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required when mqtt is enabled")
	}
	return nil
}
