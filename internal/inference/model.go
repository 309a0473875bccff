// Package inference holds the keyword spotting models and the registry that
// maps each keyword to the models scoring it.
package inference

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Model scores one window of audio. Score must return a value in [0, 1]
// and must be safe for concurrent use.
type Model interface {
	ID() string
	Score(segment []float32) float64
}

// ScoreFunc adapts a plain function to Model.
type ScoreFunc struct {
	Name string
	Fn   func(segment []float32) float64
}

func (m ScoreFunc) ID() string { return m.Name }

func (m ScoreFunc) Score(segment []float32) float64 { return clamp(m.Fn(segment)) }

// ConstantModel returns the same confidence for every window.
type ConstantModel struct {
	Name       string
	Confidence float64
}

func (m ConstantModel) ID() string { return m.Name }

func (m ConstantModel) Score([]float32) float64 { return clamp(m.Confidence) }

// RandomModel returns uniformly distributed confidences. It stands in for a
// real classifier and ignores the audio.
type RandomModel struct {
	name string
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewRandomModel returns a RandomModel seeded with seed.
func NewRandomModel(name string, seed uint64) *RandomModel {
	return &RandomModel{
		name: name,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (m *RandomModel) ID() string { return m.name }

func (m *RandomModel) Score([]float32) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
