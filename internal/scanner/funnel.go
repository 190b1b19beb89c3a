package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stockpilot/internal/advisor"
	"stockpilot/internal/market"
	"stockpilot/internal/scheduler"
	"stockpilot/internal/scoring"
	"stockpilot/internal/types"
)

// Filters are the funnel knobs that support hot reload. Everything else is
// fixed at construction.
type Filters struct {
	MinPrice      float64
	MaxPrice      float64
	MinVolume     int64
	MinScorePct   float64
	MinConfidence float64
}

// Config fixes the funnel's stage cadence and limits.
type Config struct {
	FastInterval time.Duration
	DeepInterval time.Duration
	AIInterval   time.Duration

	FastLimit int
	DeepLimit int
	AILimit   int

	HistoryBars     int
	DeepConcurrency int
	AIConcurrency   int
	AITimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.FastInterval <= 0 {
		c.FastInterval = 10 * time.Second
	}
	if c.DeepInterval <= 0 {
		c.DeepInterval = 60 * time.Second
	}
	if c.AIInterval <= 0 {
		c.AIInterval = 300 * time.Second
	}
	if c.FastLimit <= 0 {
		c.FastLimit = 50
	}
	if c.DeepLimit <= 0 {
		c.DeepLimit = 20
	}
	if c.AILimit <= 0 {
		c.AILimit = 5
	}
	if c.HistoryBars <= 0 {
		c.HistoryBars = 30
	}
	if c.DeepConcurrency <= 0 {
		c.DeepConcurrency = 4
	}
	if c.AIConcurrency <= 0 {
		c.AIConcurrency = 2
	}
	if c.AITimeout <= 0 {
		c.AITimeout = 45 * time.Second
	}
	return c
}

// FinalListener receives every published final snapshot.
type FinalListener func(types.StageSnapshot)

// Funnel is the three-stage candidate pipeline. Each stage owns its snapshot
// exclusively and publishes it with a single atomic swap; readers always see
// a complete list.
type Funnel struct {
	cfg      Config
	provider market.Provider
	adv      advisor.Advisor
	engine   *scoring.Engine

	filterMu sync.RWMutex
	filters  Filters

	fast  stageState
	deep  stageState
	final stageState

	listenerMu sync.RWMutex
	onFinal    FinalListener
}

// stageState is the per-stage published snapshot plus last-error bookkeeping.
// The snapshot pointer is only ever replaced whole.
type stageState struct {
	snap    atomic.Pointer[types.StageSnapshot]
	lastErr atomic.Pointer[stageError]
}

type stageError struct {
	Msg string
	At  time.Time
}

func (s *stageState) publish(snap types.StageSnapshot) {
	s.snap.Store(&snap)
}

func (s *stageState) load() *types.StageSnapshot {
	return s.snap.Load()
}

func (s *stageState) recordError(err error) {
	s.lastErr.Store(&stageError{Msg: err.Error(), At: time.Now()})
}

func New(cfg Config, filters Filters, provider market.Provider, adv advisor.Advisor, engine *scoring.Engine) *Funnel {
	return &Funnel{
		cfg:      cfg.withDefaults(),
		provider: provider,
		adv:      adv,
		engine:   engine,
		filters:  filters,
	}
}

// SetFinalListener registers the consumer of final snapshots (the decision
// coordinator). Must be set before Run.
func (f *Funnel) SetFinalListener(fn FinalListener) {
	f.listenerMu.Lock()
	f.onFinal = fn
	f.listenerMu.Unlock()
}

// UpdateFilters swaps the hot-reloadable thresholds.
func (f *Funnel) UpdateFilters(filters Filters) {
	f.filterMu.Lock()
	f.filters = filters
	f.filterMu.Unlock()
}

func (f *Funnel) currentFilters() Filters {
	f.filterMu.RLock()
	defer f.filterMu.RUnlock()
	return f.filters
}

// Run drives the three stage jobs until ctx is cancelled. Each job is
// single-flight; a tick that fires mid-run is skipped.
func (f *Funnel) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	fastJob := scheduler.NewIntervalJob("fast-scan", f.cfg.FastInterval)
	fastJob.RunImmediately = true
	deepJob := scheduler.NewIntervalJob("deep-scan", f.cfg.DeepInterval)
	aiJob := scheduler.NewIntervalJob("ai-scan", f.cfg.AIInterval)

	group.Go(func() error {
		fastJob.Run(ctx, f.RunFastOnce)
		return nil
	})
	group.Go(func() error {
		deepJob.Run(ctx, f.RunDeepOnce)
		return nil
	})
	group.Go(func() error {
		aiJob.Run(ctx, f.RunAIOnce)
		return nil
	})
	return group.Wait()
}

// FastSnapshot returns the latest published fast-scan output, or nil.
func (f *Funnel) FastSnapshot() *types.StageSnapshot { return f.fast.load() }

// DeepSnapshot returns the latest published deep-scan output, or nil.
func (f *Funnel) DeepSnapshot() *types.StageSnapshot { return f.deep.load() }

// FinalSnapshot returns the latest AI-gated output, or nil.
func (f *Funnel) FinalSnapshot() *types.StageSnapshot { return f.final.load() }

func (f *Funnel) notifyFinal(snap types.StageSnapshot) {
	f.listenerMu.RLock()
	fn := f.onFinal
	f.listenerMu.RUnlock()
	if fn != nil {
		fn(snap)
	}
}

// analyzeOne runs a single advisor call under the per-candidate timeout.
func (f *Funnel) analyzeOne(ctx context.Context, c types.Candidate) (types.AIRecommendation, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.cfg.AITimeout)
	defer cancel()
	return f.adv.Analyze(callCtx, c)
}
