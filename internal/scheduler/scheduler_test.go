package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalJobFiresPeriodically(t *testing.T) {
	var runs atomic.Int32
	job := NewIntervalJob("test", 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 105*time.Millisecond)
	defer cancel()
	job.Run(ctx, func(context.Context) {
		runs.Add(1)
	})

	assert.GreaterOrEqual(t, runs.Load(), int32(5))
}

func TestIntervalJobSingleFlight(t *testing.T) {
	var active atomic.Int32
	var maxActive atomic.Int32
	var runs atomic.Int32
	job := NewIntervalJob("slow", 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	job.Run(ctx, func(context.Context) {
		now := active.Add(1)
		if now > maxActive.Load() {
			maxActive.Store(now)
		}
		time.Sleep(35 * time.Millisecond) // spans several ticks
		active.Add(-1)
		runs.Add(1)
	})

	assert.EqualValues(t, 1, maxActive.Load(), "runs must never overlap")
	assert.Less(t, runs.Load(), int32(6), "overlapping ticks must be skipped, not queued")
}

func TestIntervalJobRunImmediately(t *testing.T) {
	var runs atomic.Int32
	job := NewIntervalJob("eager", time.Hour)
	job.RunImmediately = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	job.Run(ctx, func(context.Context) {
		runs.Add(1)
	})

	assert.EqualValues(t, 1, runs.Load())
}

func TestIntervalJobInvalidInterval(t *testing.T) {
	job := NewIntervalJob("bad", 0)
	done := make(chan struct{})
	go func() {
		job.Run(context.Background(), func(context.Context) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job with invalid interval must return immediately")
	}
}
