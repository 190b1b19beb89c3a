package portfolio

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/risk"
)

func normalPosition(code string, qty int64, entry float64) Position {
	params := risk.DefaultTable()[risk.ModeNormal]
	stop, target := risk.ThresholdsFor(params, entry)
	return Position{
		StockCode:       code,
		Quantity:        qty,
		EntryPrice:      entry,
		EntryMode:       params,
		StopLossPrice:   stop,
		TakeProfitPrice: target,
		Status:          StatusOpen,
		OpenedAt:        time.Now(),
	}
}

func TestOpenAndCloseLifecycle(t *testing.T) {
	s := NewMemoryStore(10_000_000)

	require.NoError(t, s.Open(normalPosition("005930", 28, 70_000)))
	assert.Equal(t, 1, s.OpenCount())
	assert.InDelta(t, 10_000_000-28*70_000, s.AvailableCash(), 1e-9)

	// Duplicate holding is rejected.
	assert.Error(t, s.Open(normalPosition("005930", 5, 70_000)))

	p, latched := s.MarkPendingExit("005930")
	require.True(t, latched)
	assert.Equal(t, StatusPendingExit, p.Status)

	// Latch: a second mark must not succeed while pending.
	_, again := s.MarkPendingExit("005930")
	assert.False(t, again)

	require.NoError(t, s.Close("005930", 77_000))
	assert.Equal(t, 0, s.OpenCount())
	assert.InDelta(t, 10_000_000+28*(77_000-70_000), s.AvailableCash(), 1e-9)
}

func TestRevertPending(t *testing.T) {
	s := NewMemoryStore(10_000_000)
	require.NoError(t, s.Open(normalPosition("000660", 10, 120_000)))

	_, latched := s.MarkPendingExit("000660")
	require.True(t, latched)

	s.RevertPending("000660")
	p, found := s.Position("000660")
	require.True(t, found)
	assert.Equal(t, StatusOpen, p.Status)

	_, latched = s.MarkPendingExit("000660")
	assert.True(t, latched)
}

func TestOpenRejectsOverspend(t *testing.T) {
	s := NewMemoryStore(1_000_000)
	err := s.Open(normalPosition("005930", 100, 70_000))
	assert.Error(t, err)
	assert.Equal(t, 0, s.OpenCount())
}

func TestEquityAgainstMarks(t *testing.T) {
	s := NewMemoryStore(10_000_000)
	require.NoError(t, s.Open(normalPosition("005930", 28, 70_000)))

	equity, baseline := s.EquityAgainst(map[string]float64{"005930": 77_000})
	assert.InDelta(t, 10_000_000+28*7_000, equity, 1e-9)
	assert.InDelta(t, 10_000_000, baseline, 1e-9)

	// Unknown mark falls back to entry price.
	equity, _ = s.EquityAgainst(nil)
	assert.InDelta(t, 10_000_000, equity, 1e-9)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.db")

	s, err := NewStore(path, 10_000_000)
	require.NoError(t, err)
	require.NoError(t, s.Open(normalPosition("005930", 28, 70_000)))
	require.NoError(t, s.CloseDB())

	reopened, err := NewStore(path, 10_000_000)
	require.NoError(t, err)
	defer reopened.CloseDB()

	p, found := reopened.Position("005930")
	require.True(t, found)
	assert.EqualValues(t, 28, p.Quantity)
	assert.Equal(t, risk.ModeNormal, p.EntryMode.Mode)
	assert.InDelta(t, 66_500, p.StopLossPrice, 1e-9)
	assert.InDelta(t, 77_000, p.TakeProfitPrice, 1e-9)
	assert.InDelta(t, 10_000_000-28*70_000, reopened.AvailableCash(), 1e-9)
}

func TestRealizedPnLSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.db")

	s, err := NewStore(path, 10_000_000)
	require.NoError(t, err)
	require.NoError(t, s.Open(normalPosition("005930", 28, 70_000)))
	_, latched := s.MarkPendingExit("005930")
	require.True(t, latched)
	require.NoError(t, s.Close("005930", 77_000))
	require.NoError(t, s.Open(normalPosition("000660", 10, 120_000)))
	require.NoError(t, s.CloseDB())

	reopened, err := NewStore(path, 10_000_000)
	require.NoError(t, err)
	defer reopened.CloseDB()

	// 196,000 won realized on the closed trade stays in cash.
	wantCash := 10_000_000 + 28*(77_000-70_000) - 10*120_000
	assert.InDelta(t, float64(wantCash), reopened.AvailableCash(), 1e-9)

	equity, baseline := reopened.EquitySnapshot()
	assert.InDelta(t, 10_196_000, equity, 1e-9)
	assert.InDelta(t, 10_000_000, baseline, 1e-9)
}
