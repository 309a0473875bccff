// Package scheduler triggers a task on a fixed interval and on demand.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/logger"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// ErrSkipped may be returned by a Task that declined to run, for example
// because a previous run is still in progress. It is logged at debug level.
var ErrSkipped = errors.NewStd("run skipped")

// Scheduler runs a Task every interval. Runs never overlap: ticks that
// fire while the task is running are dropped.
type Scheduler struct {
	interval time.Duration
	task     Task
	trigger  chan struct{}
	log      logger.Logger

	mu      sync.Mutex
	runs    int
	lastErr error
}

// New returns a Scheduler for task.
func New(interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		trigger:  make(chan struct{}, 1),
		log:      logger.Global().Module("scheduler"),
	}
}

// Trigger requests an immediate run. It never blocks; a pending request
// absorbs further ones.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Runs returns the number of completed runs and the last error.
func (s *Scheduler) Runs() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}

// Run executes the task once immediately and then on every tick until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.Newf("scheduler interval must be positive, got %s", s.interval).
			Component("scheduler").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", logger.Duration("interval", s.interval))
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		case <-s.trigger:
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := s.task(ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		s.log.Debug("scheduled run skipped", logger.Error(err))
	case errors.Is(err, context.Canceled):
	default:
		s.log.Error("scheduled run failed", logger.Error(err))
	}
}
