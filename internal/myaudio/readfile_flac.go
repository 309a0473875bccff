package myaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

// decodeFLAC reads a FLAC stream and returns mono samples in [-1, 1].
// size bounds the preallocation, since STREAMINFO is not trusted.
func decodeFLAC(r io.Reader, size int64) (pcm, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return pcm{}, err
	}
	if decoder.NChannels < 1 {
		return pcm{}, fmt.Errorf("unsupported number of channels: %d", decoder.NChannels)
	}

	bytesPerSample := decoder.BitsPerSample / 8
	var interleaved []float32
	if decoder.TotalSamples > 0 && size > 0 {
		// A frame cannot describe more samples than the file has bytes.
		capacity := min(decoder.TotalSamples*int64(decoder.NChannels), size)
		interleaved = make([]float32, 0, int(capacity))
	}

	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pcm{}, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			interleaved = append(interleaved, float32(sample)/divisor)
		}
	}

	return pcm{
		samples:    downmix(interleaved, decoder.NChannels),
		sampleRate: decoder.SampleRate,
		channels:   decoder.NChannels,
	}, nil
}
