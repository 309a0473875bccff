package myaudio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavChunkSize is the number of interleaved samples decoded per PCMBuffer call.
const wavChunkSize = 64 * 1024

// decodeWAV reads a PCM WAV stream and returns mono samples in [-1, 1].
func decodeWAV(r io.ReadSeeker) (pcm, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return pcm{}, errors.New("invalid WAV file format")
	}

	if decoder.NumChans < 1 || decoder.NumChans > 2 {
		return pcm{}, fmt.Errorf("unsupported number of channels: %d", decoder.NumChans)
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return pcm{}, err
	}

	channels := int(decoder.NumChans)
	buf := &audio.IntBuffer{
		Data:           make([]int, wavChunkSize*channels),
		Format:         &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
		SourceBitDepth: int(decoder.BitDepth),
	}

	var interleaved []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return pcm{}, fmt.Errorf("error reading PCM data: %w", err)
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			interleaved = append(interleaved, float32(sample)/divisor)
		}
	}

	return pcm{
		samples:    downmix(interleaved, channels),
		sampleRate: int(decoder.SampleRate),
		channels:   channels,
	}, nil
}

// getAudioDivisor returns the full scale value for a PCM bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// downmix averages interleaved channels into a single channel.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	mono := make([]float32, len(interleaved)/channels)
	for i := range mono {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
