package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTicksUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	s := New(5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	runs, err := s.Runs()
	assert.GreaterOrEqual(t, runs, 3)
	assert.NoError(t, err)
}

func TestRunsNeverOverlap(t *testing.T) {
	var active, overlaps atomic.Int32
	var calls atomic.Int32
	s := New(time.Millisecond, func(context.Context) error {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, overlaps.Load())
}

func TestTriggerRunsImmediately(t *testing.T) {
	var calls atomic.Int32
	s := New(time.Hour, func(context.Context) error {
		calls.Add(1)
		return fmt.Errorf("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, time.Millisecond)
	s.Trigger()
	s.Trigger()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err := s.Runs()
	assert.EqualError(t, err, "boom")
}

func TestRunRejectsInvalidInterval(t *testing.T) {
	s := New(0, func(context.Context) error { return nil })
	require.Error(t, s.Run(context.Background()))
}
