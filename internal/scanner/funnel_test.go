package scanner

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/market"
	"stockpilot/internal/scoring"
	"stockpilot/internal/types"
)

// fakeProvider implements market.Provider with overridable behavior per test.
type fakeProvider struct {
	universe func(ctx context.Context) ([]market.UniverseEntry, error)
	flow     func(ctx context.Context, code string) (market.FlowSummary, error)
	book     func(ctx context.Context, code string) (market.Orderbook, error)
	closes   func(ctx context.Context, code string, bars int) ([]float64, error)
	price    func(ctx context.Context, code string) (float64, error)
}

func (p *fakeProvider) UniverseSnapshot(ctx context.Context) ([]market.UniverseEntry, error) {
	return p.universe(ctx)
}
func (p *fakeProvider) InstitutionalFlow(ctx context.Context, code string) (market.FlowSummary, error) {
	if p.flow == nil {
		return market.FlowSummary{NetBuyQty: 10_000}, nil
	}
	return p.flow(ctx, code)
}
func (p *fakeProvider) Orderbook(ctx context.Context, code string) (market.Orderbook, error) {
	if p.book == nil {
		return market.Orderbook{
			Bids: []market.DepthLevel{{Price: 1000, Quantity: 900}},
			Asks: []market.DepthLevel{{Price: 1005, Quantity: 300}},
		}, nil
	}
	return p.book(ctx, code)
}
func (p *fakeProvider) CloseHistory(ctx context.Context, code string, bars int) ([]float64, error) {
	if p.closes == nil {
		out := make([]float64, 30)
		price := 10_000.0
		for i := range out {
			price *= 1.005
			out[i] = price
		}
		return out, nil
	}
	return p.closes(ctx, code, bars)
}
func (p *fakeProvider) LatestPrice(ctx context.Context, code string) (float64, error) {
	if p.price == nil {
		return 10_000, nil
	}
	return p.price(ctx, code)
}

// fakeAdvisor returns a scripted recommendation per stock code.
type fakeAdvisor struct {
	analyze func(ctx context.Context, c types.Candidate) (types.AIRecommendation, error)
}

func (a *fakeAdvisor) Analyze(ctx context.Context, c types.Candidate) (types.AIRecommendation, error) {
	return a.analyze(ctx, c)
}

func defaultFilters() Filters {
	return Filters{
		MinPrice:      1_000,
		MaxPrice:      100_000,
		MinVolume:     100_000,
		MinScorePct:   60,
		MinConfidence: 0.6,
	}
}

func newTestFunnel(p market.Provider, a *fakeAdvisor) *Funnel {
	engine := scoring.NewEngine(scoring.DefaultCriteria(nil))
	var adv fakeAdvisor
	if a == nil {
		a = &adv
		a.analyze = func(ctx context.Context, c types.Candidate) (types.AIRecommendation, error) {
			return types.AIRecommendation{Action: "buy", Confidence: 0.9, Reasoning: "test"}, nil
		}
	}
	return New(Config{}, defaultFilters(), p, a, engine)
}

// synthUniverse builds a 500-stock universe with a deterministic spread of
// prices, volumes and turnovers, including out-of-band entries.
func synthUniverse() []market.UniverseEntry {
	entries := make([]market.UniverseEntry, 0, 500)
	for i := 0; i < 500; i++ {
		price := float64(500 + i*300)     // some below 1000, some above 100000
		volume := int64(50_000 + i*1_000) // some below the 100k floor
		entries = append(entries, market.UniverseEntry{
			StockCode: fmt.Sprintf("%06d", i),
			Price:     price,
			Volume:    volume,
			AvgVolume: volume / 2,
			Turnover:  price * float64(volume),
			ChangePct: float64(i%17) - 5,
		})
	}
	// Duplicate turnover pair to exercise the stock-code tie break.
	entries[100].Turnover = entries[101].Turnover
	return entries
}

func TestFastScanTop50ByTurnover(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{universe: func(context.Context) ([]market.UniverseEntry, error) {
		return universe, nil
	}}
	f := newTestFunnel(p, nil)

	f.RunFastOnce(context.Background())
	snap := f.FastSnapshot()
	require.NotNil(t, snap)

	expected := make([]market.UniverseEntry, 0, len(universe))
	for _, e := range universe {
		if e.Price >= 1_000 && e.Price <= 100_000 && e.Volume >= 100_000 {
			expected = append(expected, e)
		}
	}
	sort.Slice(expected, func(i, j int) bool {
		if expected[i].Turnover != expected[j].Turnover {
			return expected[i].Turnover > expected[j].Turnover
		}
		return expected[i].StockCode < expected[j].StockCode
	})
	expected = expected[:50]

	require.Len(t, snap.Candidates, 50)
	for i, c := range snap.Candidates {
		assert.Equal(t, expected[i].StockCode, c.StockCode, "rank %d", i)
		assert.Equal(t, types.StageFast, c.Stage)
	}
	assert.Equal(t, len(universe), snap.InputCount)
	assert.Equal(t, 50, snap.OutputCount)
}

func TestFastScanOutageRetainsPreviousSnapshot(t *testing.T) {
	universe := synthUniverse()
	healthy := true
	p := &fakeProvider{universe: func(context.Context) ([]market.UniverseEntry, error) {
		if healthy {
			return universe, nil
		}
		return nil, market.Unavailable("universe snapshot", fmt.Errorf("connection refused"))
	}}
	f := newTestFunnel(p, nil)

	f.RunFastOnce(context.Background())
	before := f.FastSnapshot()
	require.NotNil(t, before)

	healthy = false
	assert.NotPanics(t, func() { f.RunFastOnce(context.Background()) })

	after := f.FastSnapshot()
	assert.Same(t, before, after, "published snapshot must be untouched by the failed cycle")

	var fastStatus StageStatus
	for _, st := range f.Status() {
		if st.Stage == types.StageFast {
			fastStatus = st
		}
	}
	assert.Contains(t, fastStatus.LastError, "market data unavailable")
}

func TestDeepScanSubsetOfFastOutput(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{universe: func(context.Context) ([]market.UniverseEntry, error) {
		return universe, nil
	}}
	f := newTestFunnel(p, nil)

	ctx := context.Background()
	f.RunFastOnce(ctx)
	f.RunDeepOnce(ctx)

	fast := f.FastSnapshot()
	deep := f.DeepSnapshot()
	require.NotNil(t, deep)
	assert.LessOrEqual(t, len(deep.Candidates), 20)

	fastCodes := make(map[string]bool, len(fast.Candidates))
	for _, c := range fast.Candidates {
		fastCodes[c.StockCode] = true
	}
	for _, c := range deep.Candidates {
		assert.True(t, fastCodes[c.StockCode], "%s not in fast output", c.StockCode)
		require.NotNil(t, c.Score)
		assert.Equal(t, types.StageDeep, c.Stage)
	}
	// Ranked by score descending.
	for i := 1; i < len(deep.Candidates); i++ {
		assert.GreaterOrEqual(t, deep.Candidates[i-1].Score.Percentage, deep.Candidates[i].Score.Percentage)
	}
}

func TestDeepScanDropsOnlyFailingCandidate(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{
		universe: func(context.Context) ([]market.UniverseEntry, error) { return universe, nil },
	}
	f := newTestFunnel(p, nil)
	ctx := context.Background()
	f.RunFastOnce(ctx)

	victim := f.FastSnapshot().Candidates[0].StockCode
	p.book = func(_ context.Context, code string) (market.Orderbook, error) {
		if code == victim {
			return market.Orderbook{}, market.Unavailable("orderbook", fmt.Errorf("per-stock glitch"))
		}
		return market.Orderbook{
			Bids: []market.DepthLevel{{Price: 1000, Quantity: 900}},
			Asks: []market.DepthLevel{{Price: 1005, Quantity: 300}},
		}, nil
	}

	f.RunDeepOnce(ctx)
	deep := f.DeepSnapshot()
	require.NotNil(t, deep)
	assert.NotEmpty(t, deep.Candidates)
	for _, c := range deep.Candidates {
		assert.NotEqual(t, victim, c.StockCode)
	}
}

func TestDeepScanTotalOutageRetainsPrevious(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{
		universe: func(context.Context) ([]market.UniverseEntry, error) { return universe, nil },
	}
	f := newTestFunnel(p, nil)
	ctx := context.Background()
	f.RunFastOnce(ctx)
	f.RunDeepOnce(ctx)
	before := f.DeepSnapshot()
	require.NotNil(t, before)

	p.flow = func(context.Context, string) (market.FlowSummary, error) {
		return market.FlowSummary{}, market.Unavailable("institutional flow", fmt.Errorf("gateway down"))
	}
	f.RunDeepOnce(ctx)
	assert.Same(t, before, f.DeepSnapshot())
}

func TestAIScanGateAndLimit(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{universe: func(context.Context) ([]market.UniverseEntry, error) {
		return universe, nil
	}}
	adv := &fakeAdvisor{}
	lowConfidence := make(map[string]bool)
	adv.analyze = func(_ context.Context, c types.Candidate) (types.AIRecommendation, error) {
		if lowConfidence[c.StockCode] {
			return types.AIRecommendation{Action: "hold", Confidence: 0.2}, nil
		}
		return types.AIRecommendation{Action: "buy", Confidence: 0.9}, nil
	}
	f := newTestFunnel(p, adv)

	ctx := context.Background()
	f.RunFastOnce(ctx)
	f.RunDeepOnce(ctx)
	deep := f.DeepSnapshot()
	require.NotNil(t, deep)
	require.NotEmpty(t, deep.Candidates)
	lowConfidence[deep.Candidates[0].StockCode] = true

	var published *types.StageSnapshot
	f.SetFinalListener(func(snap types.StageSnapshot) { published = &snap })

	f.RunAIOnce(ctx)
	final := f.FinalSnapshot()
	require.NotNil(t, final)
	require.NotEmpty(t, final.Candidates)
	assert.LessOrEqual(t, len(final.Candidates), 5)
	require.NotNil(t, published)
	assert.Equal(t, final.CycleID, published.CycleID)

	for _, c := range final.Candidates {
		assert.NotEqual(t, deep.Candidates[0].StockCode, c.StockCode, "low-confidence candidate must be gated out")
		require.NotNil(t, c.AI)
		assert.GreaterOrEqual(t, c.AI.Confidence, 0.6)
		require.NotNil(t, c.Score)
		assert.GreaterOrEqual(t, c.Score.Percentage, 60.0)
	}
}

func TestAIScanAllFailuresRetainPrevious(t *testing.T) {
	universe := synthUniverse()
	p := &fakeProvider{universe: func(context.Context) ([]market.UniverseEntry, error) {
		return universe, nil
	}}
	f := newTestFunnel(p, nil)
	ctx := context.Background()
	f.RunFastOnce(ctx)
	f.RunDeepOnce(ctx)
	f.RunAIOnce(ctx)
	before := f.FinalSnapshot()
	require.NotNil(t, before)

	broken := &fakeAdvisor{analyze: func(context.Context, types.Candidate) (types.AIRecommendation, error) {
		return types.AIRecommendation{}, fmt.Errorf("backend down")
	}}
	f.adv = broken
	f.RunAIOnce(ctx)
	assert.Same(t, before, f.FinalSnapshot())
}
