package detection

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/myaudio"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(path string, targetRate int) (*myaudio.Buffer, error) {
	args := m.Called(path, targetRate)
	buf, _ := args.Get(0).(*myaudio.Buffer)
	return buf, args.Error(1)
}

var defaultConfig = Config{SampleRate: 8000, WindowLength: 8000, Stride: 8000, Threshold: 0.9}

func newRegistry(t *testing.T, models map[string][]inference.Model) *inference.Registry {
	t.Helper()
	b := inference.NewBuilder()
	for _, kw := range []string{"call", "is", "recorded"} {
		for _, m := range models[kw] {
			b.Register(kw, m)
		}
	}
	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestDetectConstantModel(t *testing.T) {
	t.Parallel()

	loader := &mockLoader{}
	loader.On("Load", "a.wav", 8000).Return(&myaudio.Buffer{Samples: make([]float32, 16000), SampleRate: 8000}, nil)

	reg := newRegistry(t, map[string][]inference.Model{
		"call": {inference.ConstantModel{Name: "v1", Confidence: 0.95}},
	})
	engine, err := NewEngine(loader, reg, defaultConfig)
	require.NoError(t, err)

	drafts, err := engine.Detect(context.Background(), "call", "a.wav")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.InDelta(t, 0.0, drafts[0].Time, 0)
	assert.InDelta(t, 1.0, drafts[1].Time, 0)
	assert.Equal(t, 8000, drafts[1].Offset)
	for _, d := range drafts {
		assert.Equal(t, "call", d.Utterance)
		assert.Equal(t, "v1", d.ModelID)
		assert.InDelta(t, 0.95, d.Confidence, 0)
	}
	loader.AssertExpectations(t)
}

func TestDetectThresholdIsStrict(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[string][]inference.Model{
		"call": {inference.ConstantModel{Name: "equal", Confidence: 0.9}},
		"is":   {inference.ConstantModel{Name: "above", Confidence: 0.9000001}},
	})
	engine, err := NewEngine(&mockLoader{}, reg, defaultConfig)
	require.NoError(t, err)

	buf := &myaudio.Buffer{Samples: make([]float32, 24000), SampleRate: 8000}

	drafts, err := engine.DetectBuffer("call", buf)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	drafts, err = engine.DetectBuffer("is", buf)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
}

func TestDetectOrderingAcrossModels(t *testing.T) {
	t.Parallel()

	// second model only fires on the first window
	firstWindowOnly := inference.ScoreFunc{Name: "m2", Fn: func(seg []float32) float64 {
		if seg[0] == 0 {
			return 0.99
		}
		return 0
	}}
	reg := newRegistry(t, map[string][]inference.Model{
		"call": {inference.ConstantModel{Name: "m1", Confidence: 0.95}, firstWindowOnly},
	})
	engine, err := NewEngine(&mockLoader{}, reg, defaultConfig)
	require.NoError(t, err)

	samples := make([]float32, 24000)
	for i := 8000; i < len(samples); i++ {
		samples[i] = 1
	}
	drafts, err := engine.DetectBuffer("call", &myaudio.Buffer{Samples: samples, SampleRate: 8000})
	require.NoError(t, err)

	var got []string
	for _, d := range drafts {
		got = append(got, fmt.Sprintf("%d/%s", d.Offset, d.ModelID))
	}
	assert.Equal(t, []string{"0/m1", "0/m2", "8000/m1", "16000/m1"}, got)
}

func TestDetectUnknownKeyword(t *testing.T) {
	t.Parallel()

	loader := &mockLoader{}
	reg := newRegistry(t, map[string][]inference.Model{
		"call":     {inference.ConstantModel{Name: "v1"}},
		"is":       {inference.ConstantModel{Name: "v1"}},
		"recorded": {inference.ConstantModel{Name: "v1"}},
	})
	engine, err := NewEngine(loader, reg, defaultConfig)
	require.NoError(t, err)

	_, err = engine.Detect(context.Background(), "unknown", "a.wav")
	require.ErrorIs(t, err, inference.ErrUnknownKeyword)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestDetectPropagatesAudioNotFound(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[string][]inference.Model{
		"call": {inference.ConstantModel{Name: "v1", Confidence: 1}},
	})
	engine, err := NewEngine(myaudio.NewLoader(myaudio.ResampleCubic), reg, defaultConfig)
	require.NoError(t, err)

	drafts, err := engine.Detect(context.Background(), "call", filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, myaudio.ErrAudioNotFound)
	assert.Nil(t, drafts)
}

func TestDetectFromWAVFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, myaudio.WriteWAV(path, make([]float32, 16000), 8000))

	reg := newRegistry(t, map[string][]inference.Model{
		"call": {inference.ConstantModel{Name: "v1", Confidence: 0.95}},
	})
	engine, err := NewEngine(myaudio.NewLoader(myaudio.ResampleCubic), reg, defaultConfig)
	require.NoError(t, err)

	drafts, err := engine.Detect(context.Background(), "call", path)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
	assert.Equal(t, []float64{0.95, 0.95}, Confidences(drafts))
}

func TestNewEngineValidatesConfig(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	_, err := NewEngine(&mockLoader{}, reg, Config{SampleRate: 8000, WindowLength: 0, Stride: 8000})
	require.Error(t, err)
	_, err = NewEngine(nil, reg, defaultConfig)
	require.Error(t, err)
}
