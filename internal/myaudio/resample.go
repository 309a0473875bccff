package myaudio

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ResampleMethod selects the sample rate converter used by Loader.
type ResampleMethod string

const (
	// ResampleSoxr uses a band-limited polyphase converter.
	ResampleSoxr ResampleMethod = "soxr"
	// ResampleCubic uses cubic interpolation.
	ResampleCubic ResampleMethod = "cubic"
)

// resampledLength is the output length for n input samples. Both converters
// produce exactly this many samples so that windowing is independent of the
// method.
func resampledLength(n, originalRate, targetRate int) int {
	return int(int64(n) * int64(targetRate) / int64(originalRate))
}

// Resample converts audio between sample rates with the given method.
func Resample(samples []float32, originalRate, targetRate int, method ResampleMethod) ([]float32, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", originalRate, targetRate)
	}
	if originalRate == targetRate {
		return samples, nil
	}
	switch method {
	case ResampleCubic:
		return ResampleAudio(samples, originalRate, targetRate)
	case ResampleSoxr, "":
		return resampleSoxr(samples, originalRate, targetRate)
	default:
		return nil, fmt.Errorf("unknown resample method %q", method)
	}
}

// resampleSoxr runs the whole buffer through a fresh converter and flushes
// it. The output is shifted by the converter's group delay so that sample i
// lines up with input time i/targetRate, and cut to resampledLength.
func resampleSoxr(samples []float32, originalRate, targetRate int) ([]float32, error) {
	want := resampledLength(len(samples), originalRate, targetRate)
	if want == 0 {
		return []float32{}, nil
	}

	offset, err := soxrOffset(originalRate, targetRate)
	if err != nil {
		return nil, err
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := runSoxr(input, originalRate, targetRate)
	if err != nil {
		return nil, err
	}

	out := make([]float32, want)
	for i := range out {
		if j := i + offset; j >= 0 && j < len(output) {
			out[i] = float32(output[j])
		}
	}
	return out, nil
}

// runSoxr converts input with a new converter and returns processed plus
// flushed output.
func runSoxr(input []float64, originalRate, targetRate int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(originalRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	return append(output, tail...), nil
}

// soxrOffsets caches the measured output shift per rate pair.
var soxrOffsets sync.Map // map[[2]int]int

// soxrOffset measures where the converter places an impulse relative to its
// ideal output position. Positive means the output lags the input.
func soxrOffset(originalRate, targetRate int) (int, error) {
	key := [2]int{originalRate, targetRate}
	if v, ok := soxrOffsets.Load(key); ok {
		return v.(int), nil
	}

	pos := max(originalRate/10, 64)
	impulse := make([]float64, 3*pos)
	impulse[pos] = 1
	response, err := runSoxr(impulse, originalRate, targetRate)
	if err != nil {
		return 0, err
	}
	if len(response) == 0 {
		return 0, fmt.Errorf("resampler produced no output for %d -> %d", originalRate, targetRate)
	}

	peak := 0
	for i, v := range response {
		if math.Abs(v) > math.Abs(response[peak]) {
			peak = i
		}
	}
	ideal := int(math.Round(float64(pos) * float64(targetRate) / float64(originalRate)))
	offset := peak - ideal

	soxrOffsets.Store(key, offset)
	return offset, nil
}

// ResampleAudio resamples the given audio slice from the original sample rate
// to the target sample rate using cubic interpolation.
func ResampleAudio(audio []float32, originalRate, targetRate int) ([]float32, error) {
	if originalRate == targetRate {
		return audio, nil
	}

	ratio := float64(targetRate) / float64(originalRate)
	newLength := resampledLength(len(audio), originalRate, targetRate)
	resampled := make([]float32, newLength)

	audioLength := len(audio)
	if audioLength < 4 {
		// too short for the 4-point kernel, fall back to nearest sample
		for i := range resampled {
			resampled[i] = audio[min(int(float64(i)/ratio), audioLength-1)]
		}
		return resampled, nil
	}
	lastIndex := audioLength - 3

	for i := range newLength {
		origPos := float64(i) / ratio
		index := int(origPos)

		if index < 1 {
			index = 1
		} else if index > lastIndex {
			index = lastIndex
		}

		frac := float32(origPos - float64(index))

		y0, y1, y2, y3 := audio[index-1], audio[index], audio[index+1], audio[index+2]
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}

	return resampled, nil
}
