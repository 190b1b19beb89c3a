package decisionlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"stockpilot/internal/decision"
	"stockpilot/internal/logger"
)

// Store keeps the audit trail of order intents in SQLite so a run can be
// reconstructed after the fact. Writes are best-effort: a log failure is
// warned about, never surfaced to the decision path.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// IntentRow is one persisted intent with its eventual outcome.
type IntentRow struct {
	ID        int64   `json:"id"`
	IntentID  string  `json:"intent_id"`
	Type      string  `json:"type"`
	StockCode string  `json:"stock_code"`
	Quantity  int64   `json:"quantity"`
	RefPrice  float64 `json:"ref_price"`
	CycleID   string  `json:"cycle_id,omitempty"`
	Status    string  `json:"status"`
	FillPrice float64 `json:"fill_price,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("decision log path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS order_intents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			intent_id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			stock_code TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			ref_price REAL NOT NULL,
			cycle_id TEXT,
			status TEXT NOT NULL,
			fill_price REAL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_order_intents_stock ON order_intents(stock_code);`,
		`CREATE INDEX IF NOT EXISTS idx_order_intents_created ON order_intents(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordIntent implements decision.Recorder.
func (s *Store) RecordIntent(intent decision.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return
	}
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO order_intents (intent_id, type, stock_code, quantity, ref_price, cycle_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'submitted', ?, ?)`,
		intent.ID, string(intent.Type), intent.StockCode, intent.Quantity, intent.RefPrice, intent.CycleID, intent.CreatedAt.Unix(), now,
	)
	if err != nil {
		logger.Warnf("decisionlog: recording intent %s failed: %v", intent.ID, err)
	}
}

// RecordOutcome implements decision.Recorder.
func (s *Store) RecordOutcome(intentID, status string, fillPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(
		`UPDATE order_intents SET status = ?, fill_price = ?, updated_at = ? WHERE intent_id = ?`,
		status, fillPrice, time.Now().Unix(), intentID,
	)
	if err != nil {
		logger.Warnf("decisionlog: recording outcome for %s failed: %v", intentID, err)
	}
}

// Recent returns the newest intents, most recent first.
func (s *Store) Recent(limit int) ([]IntentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decisionlog: store closed")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, intent_id, type, stock_code, quantity, ref_price, COALESCE(cycle_id, ''), status, COALESCE(fill_price, 0), created_at, updated_at
		 FROM order_intents ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IntentRow
	for rows.Next() {
		var r IntentRow
		if err := rows.Scan(&r.ID, &r.IntentID, &r.Type, &r.StockCode, &r.Quantity, &r.RefPrice, &r.CycleID, &r.Status, &r.FillPrice, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
