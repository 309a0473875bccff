package myaudio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono float samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, sampleRate, 16, 1, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		ints[i] = int(max(-32768, min(32767, v)))
	}

	if err := enc.Write(&audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}

	return enc.Close()
}
