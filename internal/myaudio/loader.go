package myaudio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Buffer is decoded mono audio at SampleRate.
type Buffer struct {
	Samples    []float32
	SampleRate int
	SourceRate int // sample rate of the file before resampling
	Channels   int // channel count of the file before downmixing
}

// Seconds returns the whole seconds of audio in the buffer.
func (b *Buffer) Seconds() int {
	if b.SampleRate <= 0 {
		return 0
	}
	return len(b.Samples) / b.SampleRate
}

// Duration returns the exact playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// pcm is the decoder output before resampling.
type pcm struct {
	samples    []float32
	sampleRate int
	channels   int
}

// Loader reads audio files and resamples them to a target rate.
// It holds no state between calls and is safe for concurrent use.
type Loader struct {
	method ResampleMethod
}

// NewLoader returns a Loader using the given resampling method.
func NewLoader(method ResampleMethod) *Loader {
	if method == "" {
		method = ResampleSoxr
	}
	return &Loader{method: method}
}

// Load decodes the file at path and resamples it to targetRate. Any failure
// to open or decode the file matches ErrAudioNotFound.
func (l *Loader) Load(path string, targetRate int) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, notFoundError(path, err)
	}
	if info.IsDir() {
		return nil, notFoundError(path, errors.New("path is a directory"))
	}
	if info.Size() == 0 {
		return nil, unreadableError(path, errors.New("empty file"))
	}

	var decoded pcm
	switch extensionOf(path) {
	case "flac":
		decoded, err = decodeFLAC(f, info.Size())
	default:
		decoded, err = decodeWAV(f)
	}
	if err != nil {
		return nil, unreadableError(path, err)
	}
	if len(decoded.samples) == 0 || decoded.sampleRate <= 0 {
		return nil, unreadableError(path, errors.New("no audio samples"))
	}

	samples, err := Resample(decoded.samples, decoded.sampleRate, targetRate, l.method)
	if err != nil {
		return nil, unreadableError(path, err)
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: targetRate,
		SourceRate: decoded.sampleRate,
		Channels:   decoded.channels,
	}, nil
}

// extensionOf returns the lower case extension without the dot.
func extensionOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
