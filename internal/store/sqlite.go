package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"marketanalysis/internal/config"
	"marketanalysis/internal/errs"
	"marketanalysis/internal/indicator"
	"marketanalysis/internal/models"
)

// SQLiteStore is the sqlite-backed Store: the system's durability boundary.
// Writes are serialized through writeMu so upserts never tear; reads go
// straight to the driver, which sqlite already serializes internally.
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// NewSQLite opens (and migrates) the sqlite database described by cfg.
func NewSQLite(cfg config.DatabaseConfig) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errs.New(errs.Fatal, "store.NewSQLite", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		return nil, errs.New(errs.Fatal, "store.NewSQLite", fmt.Errorf("failed to ping database: %w", err))
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, errs.New(errs.Fatal, "store.NewSQLite", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE,
			price REAL NOT NULL,
			rsi REAL,
			sma_20 REAL,
			sma_50 REAL,
			macd_line REAL,
			macd_signal REAL,
			macd_histogram REAL,
			volume INTEGER,
			market_cap REAL,
			sector TEXT,
			is_oversold BOOLEAN NOT NULL DEFAULT 0,
			is_overbought BOOLEAN NOT NULL DEFAULT 0,
			analyzed_at DATETIME NOT NULL
		);
	`
	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_analyzed_at ON analyses(analyzed_at DESC);`,
	}
	for _, idx := range indexes {
		if _, err := s.conn.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Upsert atomically replaces the Analysis for a.Symbol.
func (s *SQLiteStore) Upsert(ctx context.Context, a models.Analysis) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var macdLine, macdSignal, macdHistogram *float64
	if a.MACD != nil {
		macdLine, macdSignal, macdHistogram = &a.MACD.MACD, &a.MACD.Signal, &a.MACD.Histogram
	}

	query := `
		INSERT INTO analyses (
			symbol, price, rsi, sma_20, sma_50, macd_line, macd_signal, macd_histogram,
			volume, market_cap, sector, is_oversold, is_overbought, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			rsi = excluded.rsi,
			sma_20 = excluded.sma_20,
			sma_50 = excluded.sma_50,
			macd_line = excluded.macd_line,
			macd_signal = excluded.macd_signal,
			macd_histogram = excluded.macd_histogram,
			volume = excluded.volume,
			market_cap = excluded.market_cap,
			sector = excluded.sector,
			is_oversold = excluded.is_oversold,
			is_overbought = excluded.is_overbought,
			analyzed_at = excluded.analyzed_at;
	`
	_, err := s.conn.ExecContext(ctx, query,
		a.Symbol, a.Price, a.RSI, a.SMA20, a.SMA50, macdLine, macdSignal, macdHistogram,
		a.Volume, a.MarketCap, a.Sector, a.IsOversold, a.IsOverbought, a.AnalyzedAt,
	)
	if err != nil {
		return errs.New(errs.Transient, "store.Upsert", err)
	}
	return nil
}

const selectColumns = `symbol, price, rsi, sma_20, sma_50, macd_line, macd_signal, macd_histogram,
	volume, market_cap, sector, is_oversold, is_overbought, analyzed_at`

func scanAnalysis(row interface {
	Scan(dest ...any) error
}) (models.Analysis, error) {
	var a models.Analysis
	var macdLine, macdSignal, macdHistogram *float64

	err := row.Scan(
		&a.Symbol, &a.Price, &a.RSI, &a.SMA20, &a.SMA50, &macdLine, &macdSignal, &macdHistogram,
		&a.Volume, &a.MarketCap, &a.Sector, &a.IsOversold, &a.IsOverbought, &a.AnalyzedAt,
	)
	if err != nil {
		return models.Analysis{}, err
	}
	if macdLine != nil && macdSignal != nil && macdHistogram != nil {
		a.MACD = &indicator.MACDValue{MACD: *macdLine, Signal: *macdSignal, Histogram: *macdHistogram}
	}
	return a, nil
}

// Get returns the Analysis for symbol, or nil if none exists yet.
func (s *SQLiteStore) Get(ctx context.Context, symbol string) (*models.Analysis, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM analyses WHERE symbol = ?`, symbol)
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.Corruption, "store.Get", err)
	}
	return &a, nil
}

// All returns a consistent snapshot of every stored Analysis.
func (s *SQLiteStore) All(ctx context.Context) ([]models.Analysis, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+selectColumns+` FROM analyses ORDER BY symbol ASC`)
	if err != nil {
		return nil, errs.New(errs.Transient, "store.All", err)
	}
	defer rows.Close()

	var out []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, errs.New(errs.Corruption, "store.All", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of Analyses currently stored.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n); err != nil {
		return 0, errs.New(errs.Transient, "store.Count", err)
	}
	return n, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Conn exposes the underlying *sql.DB so other components backed by the
// same sqlite file (the symbol universe table) can share one connection
// pool instead of opening a second one.
func (s *SQLiteStore) Conn() *sql.DB {
	return s.conn
}

// HealthCheck confirms the underlying connection is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.conn.PingContext(ctx); err != nil {
		return errs.New(errs.Fatal, "store.HealthCheck", err)
	}
	return nil
}
