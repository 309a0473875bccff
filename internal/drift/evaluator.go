// Package drift compares the confidence distribution of a new prediction
// batch with the live generation and keeps the batches that drifted.
package drift

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/errors"
)

// Result is the outcome of one comparison.
type Result struct {
	Drifted       bool
	Statistic     float64 // KS D statistic, 0 when the test was skipped
	PValue        float64 // 1 when the test was skipped
	BaselineSize  int
	CandidateSize int
}

// Skipped reports whether either sample was empty, in which case no test ran.
func (r Result) Skipped() bool {
	return r.BaselineSize == 0 || r.CandidateSize == 0
}

// Batch is a drifted candidate batch retained for inspection.
type Batch struct {
	FileID      uint
	FileName    string
	Reference   string
	Result      Result
	Predictions []detection.Draft
	Promoted    bool
	DetectedAt  time.Time
}

// Evaluator runs the two-sample test at a fixed significance level.
// It never touches stored data.
type Evaluator struct {
	significance float64
	retain       int

	mu      sync.RWMutex
	drifted []Batch
}

// NewEvaluator returns an Evaluator declaring drift when p < significance
// and retaining the most recent retain drifted batches.
func NewEvaluator(significance float64, retain int) (*Evaluator, error) {
	if significance <= 0 || significance >= 1 || math.IsNaN(significance) {
		return nil, errors.Newf("drift significance must be in (0, 1), got %g", significance).
			Component("drift").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Evaluator{significance: significance, retain: max(retain, 0)}, nil
}

// Significance returns the configured alpha.
func (e *Evaluator) Significance() float64 { return e.significance }

// HasDrifted compares candidate against baseline. An empty baseline never
// drifts since there is nothing to compare against. An empty candidate is
// treated as no drift as well.
func (e *Evaluator) HasDrifted(baseline, candidate []float64) (Result, error) {
	res := Result{PValue: 1, BaselineSize: len(baseline), CandidateSize: len(candidate)}
	if res.Skipped() {
		return res, nil
	}

	for _, sample := range [][]float64{baseline, candidate} {
		if i := slices.IndexFunc(sample, func(v float64) bool { return math.IsNaN(v) || v < 0 || v > 1 }); i >= 0 {
			return res, errors.New(fmt.Errorf("confidence %g outside [0, 1]", sample[i])).
				Component("drift").
				Category(errors.CategoryValidation).
				Build()
		}
	}

	res.Statistic, res.PValue = ksTest(baseline, candidate)
	res.Drifted = res.PValue < e.significance
	return res, nil
}

// Record retains a drifted batch, evicting the oldest beyond the limit.
func (e *Evaluator) Record(b Batch) {
	if e.retain == 0 {
		return
	}
	if b.DetectedAt.IsZero() {
		b.DetectedAt = time.Now()
	}
	b.Predictions = slices.Clone(b.Predictions)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.drifted = append(e.drifted, b)
	if over := len(e.drifted) - e.retain; over > 0 {
		e.drifted = slices.Delete(e.drifted, 0, over)
	}
}

// Drifted returns the retained drifted batches, oldest first.
func (e *Evaluator) Drifted() []Batch {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.drifted)
}
