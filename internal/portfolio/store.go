package portfolio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stockpilot/internal/logger"
)

// Store owns all positions and the equity picture. Other components hold
// read-only copies; only the decision coordinator mutates positions through
// the lifecycle methods here.
type Store struct {
	mu        sync.RWMutex
	positions map[string]Position // open + pending-exit only
	cash      float64
	baseline  float64

	db *gorm.DB // nil means memory-only
}

// NewStore opens (or creates) the sqlite-backed store and reloads any
// positions that were open when the process last stopped.
func NewStore(path string, initialCash float64) (*Store, error) {
	path = strings.TrimSpace(path)
	var db *gorm.DB
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
		opened, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("opening position store failed: %w", err)
		}
		if err := opened.AutoMigrate(&PositionRecord{}); err != nil {
			return nil, err
		}
		if sqlDB, err := opened.DB(); err == nil {
			sqlDB.SetMaxOpenConns(2)
			sqlDB.SetMaxIdleConns(2)
		}
		db = opened
	}
	s := &Store{
		positions: make(map[string]Position),
		cash:      initialCash,
		baseline:  initialCash,
		db:        db,
	}
	if db != nil {
		if err := s.reload(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewMemoryStore is the persistence-free constructor used by tests and the
// paper-trading path.
func NewMemoryStore(initialCash float64) *Store {
	return &Store{
		positions: make(map[string]Position),
		cash:      initialCash,
		baseline:  initialCash,
	}
}

func (s *Store) reload() error {
	var recs []PositionRecord
	if err := s.db.Where("status IN ?", []string{string(StatusOpen), string(StatusPendingExit)}).Find(&recs).Error; err != nil {
		return fmt.Errorf("reloading positions failed: %w", err)
	}
	for _, rec := range recs {
		p, err := fromRecord(rec)
		if err != nil {
			logger.Warnf("portfolio: skipping corrupt position row id=%d: %v", rec.ID, err)
			continue
		}
		s.positions[p.StockCode] = p
		s.cash -= p.Cost()
	}
	if len(recs) > 0 {
		logger.Infof("portfolio: reloaded %d open positions", len(recs))
	}
	// Realized P&L from closed rows carries into cash, so the trailing
	// return keeps spanning restarts.
	var realized float64
	row := s.db.Model(&PositionRecord{}).
		Where("status = ?", string(StatusClosed)).
		Select("COALESCE(SUM((exit_price - entry_price) * quantity), 0)").
		Row()
	if err := row.Scan(&realized); err != nil {
		return fmt.Errorf("reloading realized pnl failed: %w", err)
	}
	s.cash += realized
	return nil
}

// Positions returns a copy of every open or pending-exit position.
func (s *Store) Positions() map[string]Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Position, len(s.positions))
	for code, p := range s.positions {
		out[code] = p
	}
	return out
}

// Position looks up a single holding by stock code.
func (s *Store) Position(stockCode string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, found := s.positions[stockCode]
	return p, found
}

// OpenCount counts positions that still consume a slot (open or pending).
func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// AvailableCash is the cash not currently locked in positions.
func (s *Store) AvailableCash() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

// Open records a confirmed buy. Rejects duplicate holdings and entries the
// remaining cash cannot cover.
func (s *Store) Open(p Position) error {
	if p.StockCode == "" || p.Quantity <= 0 || p.EntryPrice <= 0 {
		return fmt.Errorf("portfolio: invalid position %+v", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.positions[p.StockCode]; exists {
		return fmt.Errorf("portfolio: already holding %s", p.StockCode)
	}
	cost := p.Cost()
	if cost > s.cash {
		return fmt.Errorf("portfolio: insufficient cash for %s (need %.0f, have %.0f)", p.StockCode, cost, s.cash)
	}
	p.Status = StatusOpen
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now()
	}
	if err := s.persist(p); err != nil {
		return err
	}
	s.positions[p.StockCode] = p
	s.cash -= cost
	return nil
}

// MarkPendingExit latches a breached position so the same breach cannot emit
// a second sell intent. Returns false if the position is absent or already
// pending.
func (s *Store) MarkPendingExit(stockCode string) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.positions[stockCode]
	if !found || p.Status != StatusOpen {
		return Position{}, false
	}
	p.Status = StatusPendingExit
	if err := s.persist(p); err != nil {
		logger.Errorf("portfolio: persisting pending-exit for %s failed: %v", stockCode, err)
	}
	s.positions[stockCode] = p
	return p, true
}

// RevertPending puts a rejected exit back to open so it can be re-evaluated.
func (s *Store) RevertPending(stockCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.positions[stockCode]
	if !found || p.Status != StatusPendingExit {
		return
	}
	p.Status = StatusOpen
	if err := s.persist(p); err != nil {
		logger.Errorf("portfolio: reverting pending-exit for %s failed: %v", stockCode, err)
	}
	s.positions[stockCode] = p
}

// Close finalizes a confirmed sell at exitPrice and releases the slot.
func (s *Store) Close(stockCode string, exitPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.positions[stockCode]
	if !found {
		return fmt.Errorf("portfolio: no position for %s", stockCode)
	}
	now := time.Now()
	p.Status = StatusClosed
	p.ClosedAt = &now
	p.ExitPrice = exitPrice
	if err := s.persist(p); err != nil {
		return err
	}
	delete(s.positions, stockCode)
	s.cash += float64(p.Quantity) * exitPrice
	return nil
}

// EquityAgainst marks every holding at the supplied price (falling back to
// entry price) and returns equity plus the baseline.
func (s *Store) EquityAgainst(marks map[string]float64) (equity, baseline float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	equity = s.cash
	for code, p := range s.positions {
		mark := p.EntryPrice
		if m, found := marks[code]; found && m > 0 {
			mark = m
		}
		equity += float64(p.Quantity) * mark
	}
	return equity, s.baseline
}

// EquitySnapshot marks every holding at entry price.
func (s *Store) EquitySnapshot() (equity, baseline float64) {
	return s.EquityAgainst(nil)
}

func (s *Store) persist(p Position) error {
	if s.db == nil {
		return nil
	}
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	// One row per (stock, open time); updates overwrite the live row.
	var existing PositionRecord
	err = s.db.Where("stock_code = ? AND opened_at = ?", p.StockCode, p.OpenedAt).First(&existing).Error
	if err == nil {
		rec.ID = existing.ID
	}
	return s.db.Save(&rec).Error
}

// CloseDB releases the underlying database handle.
func (s *Store) CloseDB() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
