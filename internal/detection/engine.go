// Package detection runs keyword models over windowed audio and keeps the
// windows whose confidence clears the threshold.
package detection

import (
	"context"
	"fmt"

	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/myaudio"
)

// AudioLoader decodes an audio file at a target sample rate.
type AudioLoader interface {
	Load(path string, targetRate int) (*myaudio.Buffer, error)
}

// Config holds the windowing parameters and the confidence threshold.
type Config struct {
	SampleRate   int
	WindowLength int
	Stride       int
	Threshold    float64
}

// Draft is a prediction that has not been persisted yet.
type Draft struct {
	Utterance  string
	ModelID    string
	Offset     int     // sample index of the window start
	Time       float64 // Offset / SampleRate, in seconds
	Confidence float64
}

// Engine produces drafts for one keyword and one recording.
type Engine struct {
	loader   AudioLoader
	registry *inference.Registry
	cfg      Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(loader AudioLoader, registry *inference.Registry, cfg Config) (*Engine, error) {
	if loader == nil || registry == nil {
		return nil, errors.NewStd("detection engine requires a loader and a registry")
	}
	if cfg.SampleRate <= 0 || cfg.WindowLength <= 0 || cfg.Stride <= 0 {
		return nil, errors.Newf("invalid detection config: rate=%d window=%d stride=%d",
			cfg.SampleRate, cfg.WindowLength, cfg.Stride).
			Component("detection").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Engine{loader: loader, registry: registry, cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Registry returns the model registry the engine scores with.
func (e *Engine) Registry() *inference.Registry { return e.registry }

// Load decodes path at the engine sample rate.
func (e *Engine) Load(path string) (*myaudio.Buffer, error) {
	return e.loader.Load(path, e.cfg.SampleRate)
}

// Detect loads the recording at path and returns the drafts for keyword.
// Unknown keywords fail with inference.ErrUnknownKeyword before any I/O and
// load failures match myaudio.ErrAudioNotFound. No drafts are returned on error.
func (e *Engine) Detect(ctx context.Context, keyword, path string) ([]Draft, error) {
	if !e.registry.Has(keyword) {
		_, err := e.registry.Models(keyword)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := e.Load(path)
	if err != nil {
		return nil, err
	}
	return e.DetectBuffer(keyword, buf)
}

// DetectBuffer scores an already loaded buffer. Drafts are ordered by window
// offset, then by model registration order.
func (e *Engine) DetectBuffer(keyword string, buf *myaudio.Buffer) ([]Draft, error) {
	models, err := e.registry.Models(keyword)
	if err != nil {
		return nil, err
	}
	if buf.SampleRate != e.cfg.SampleRate {
		return nil, fmt.Errorf("buffer sample rate %d does not match engine rate %d", buf.SampleRate, e.cfg.SampleRate)
	}

	var drafts []Draft
	for offset, segment := range myaudio.NewWindows(buf.Samples, e.cfg.Stride, e.cfg.WindowLength).All() {
		for _, m := range models {
			confidence := m.Score(segment)
			if confidence <= e.cfg.Threshold {
				continue
			}
			drafts = append(drafts, Draft{
				Utterance:  keyword,
				ModelID:    m.ID(),
				Offset:     offset,
				Time:       float64(offset) / float64(e.cfg.SampleRate),
				Confidence: confidence,
			})
		}
	}
	return drafts, nil
}

// Confidences extracts the confidence column of drafts.
func Confidences(drafts []Draft) []float64 {
	out := make([]float64, len(drafts))
	for i := range drafts {
		out[i] = drafts[i].Confidence
	}
	return out
}
