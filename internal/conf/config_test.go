package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	settings, err := LoadFile(writeConfig(t, "main:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", settings.Main.Name)
	assert.Equal(t, DefaultSampleRate, settings.Audio.SampleRate)
	assert.Equal(t, DefaultWindowLength, settings.Audio.WindowLength)
	assert.Equal(t, DefaultStride, settings.Audio.Stride)
	assert.InDelta(t, DefaultThreshold, settings.Detection.Threshold, 1e-9)
	assert.InDelta(t, DefaultSignificance, settings.Drift.Significance, 1e-9)
	assert.Equal(t, DriftPolicyObserve, settings.Drift.Policy)
	assert.Equal(t, time.Second, settings.Ingest.Interval)
	assert.Equal(t, []string{".wav", ".flac"}, settings.Audio.Extensions)
	assert.True(t, settings.Output.SQLite.Enabled)

	require.Len(t, settings.Detection.Models, 6)
	assert.Equal(t, "call", settings.Detection.Models[0].Keyword)
	assert.Equal(t, "v1", settings.Detection.Models[0].ID)
	assert.Equal(t, "v2", settings.Detection.Models[1].ID)
	assert.Same(t, settings, Setting())
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
audio:
  samplerate: 16000
  extensions: ["WAV"]
detection:
  threshold: 0.5
  models:
    - keyword: hello
      id: const
      type: constant
      value: 0.7
drift:
  policy: quarantine
ingest:
  interval: 30s
  workers: 4
`)
	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 16000, settings.Audio.SampleRate)
	assert.Equal(t, []string{".wav"}, settings.Audio.Extensions)
	assert.InDelta(t, 0.5, settings.Detection.Threshold, 1e-9)
	require.Len(t, settings.Detection.Models, 1)
	assert.Equal(t, "constant", settings.Detection.Models[0].Type)
	assert.InDelta(t, 0.7, settings.Detection.Models[0].Value, 1e-9)
	assert.Equal(t, DriftPolicyQuarantine, settings.Drift.Policy)
	assert.Equal(t, 30*time.Second, settings.Ingest.Interval)
	assert.Equal(t, 4, settings.Ingest.Workers)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("AUDIOPHILE_MEDIA_DIR", "/srv/recordings")
	t.Setenv("AUDIOPHILE_THRESHOLD", "0.75")

	settings, err := LoadFile(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/recordings", settings.Media.Dir)
	assert.InDelta(t, 0.75, settings.Detection.Threshold, 1e-9)
}

func TestLoadFileInvalidEnv(t *testing.T) {
	t.Setenv("AUDIOPHILE_DRIFT_POLICY", "block")

	_, err := LoadFile(writeConfig(t, "debug: false\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUDIOPHILE_DRIFT_POLICY")
}

func TestValidateSettingsCollectsErrors(t *testing.T) {
	path := writeConfig(t, `
audio:
  stride: 0
detection:
  threshold: 1.5
drift:
  significance: 0
`)
	_, err := LoadFile(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateOutputExactlyOne(t *testing.T) {
	path := writeConfig(t, `
output:
  mysql:
    enabled: true
`)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	settings, err := LoadFile(writeConfig(t, "media:\n  dir: /data\n"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved", "config.yaml")
	require.NoError(t, SaveYAML(out, settings))

	reloaded, err := LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/data", reloaded.Media.Dir)
	assert.Equal(t, settings.Detection.Models, reloaded.Detection.Models)
	assert.Equal(t, settings.Ingest.Interval, reloaded.Ingest.Interval)
}
