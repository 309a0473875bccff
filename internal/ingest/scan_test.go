package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o600))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.wav"))
	touch(t, filepath.Join(dir, "a.WAV"))
	touch(t, filepath.Join(dir, "c.flac"))
	touch(t, filepath.Join(dir, "d.mp3"))
	touch(t, filepath.Join(dir, "sub", "e.wav"))

	exts := []string{".wav", ".flac"}

	files, err := Scan(context.Background(), dir, exts, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.WAV"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(dir, "c.flac"),
	}, files)

	files, err = Scan(context.Background(), dir, exts, true)
	require.NoError(t, err)
	assert.Len(t, files, 4)
	assert.Contains(t, files, filepath.Join(dir, "sub", "e.wav"))
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), []string{".wav"}, false)
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "meeting", FileName("/media/meeting.wav"))
	assert.Equal(t, "a.b", FileName("a.b.flac"))
}
