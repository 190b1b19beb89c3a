package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stockpilot/internal/logger"
)

// IntervalJob runs a task on a fixed period with single-flight semantics:
// if a run is still in progress when the next tick fires, that tick is
// skipped and logged rather than queued.
type IntervalJob struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

func NewIntervalJob(name string, interval time.Duration) *IntervalJob {
	return &IntervalJob{Name: name, Interval: interval}
}

// Run blocks until ctx is cancelled, firing task every Interval. The task
// receives the same ctx so in-flight work stops with the scheduler.
func (j *IntervalJob) Run(ctx context.Context, task func(context.Context)) {
	if j == nil || task == nil {
		return
	}
	if j.Interval <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, not starting", j.Name, j.Interval)
		return
	}
	logger.Infof("scheduler %s: started interval=%s", j.Name, j.Interval)

	if j.RunImmediately {
		j.dispatch(ctx, task)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.wg.Wait()
			logger.Infof("scheduler %s: stopped", j.Name)
			return
		case <-ticker.C:
			j.dispatch(ctx, task)
		}
	}
}

func (j *IntervalJob) dispatch(ctx context.Context, task func(context.Context)) {
	if !j.inFlight.CompareAndSwap(false, true) {
		logger.Warnf("scheduler %s: previous run still in progress, skipping tick", j.Name)
		return
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.inFlight.Store(false)
		task(ctx)
	}()
}
