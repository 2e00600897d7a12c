// Package universe supplies the ordered roster of symbols the scheduler
// iterates, generalized from the teacher's watchlist: a (symbol, market_cap?,
// sector?) tuple instead of a watched stock with EMA fields and a category.
package universe

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"marketanalysis/internal/errs"
	"marketanalysis/internal/models"
)

// Provider supplies the symbol universe, per §4.8/§6.
type Provider interface {
	Symbols(ctx context.Context) ([]models.SymbolMeta, error)
}

// SQLiteProvider reads the roster from a sqlite table, falling back to a
// small static list when the table is empty or cannot be queried.
type SQLiteProvider struct {
	conn           *sql.DB
	staticFallback []string
}

// NewSQLiteProvider opens (and migrates) the universe table on conn's
// database, using defaultSymbols as the fallback roster.
func NewSQLiteProvider(conn *sql.DB, defaultSymbols []string) (*SQLiteProvider, error) {
	p := &SQLiteProvider{conn: conn, staticFallback: defaultSymbols}
	if err := p.migrate(); err != nil {
		return nil, errs.New(errs.Fatal, "universe.NewSQLiteProvider", err)
	}
	return p, nil
}

func (p *SQLiteProvider) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS symbol_universe (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE,
			market_cap REAL,
			sector TEXT,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := p.conn.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create symbol_universe table: %w", err)
	}
	_, err = p.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_symbol_universe_added_at ON symbol_universe(added_at);`)
	return err
}

// Symbols returns the roster in insertion order, falling back to the static
// list when the table has no rows or cannot be queried.
func (p *SQLiteProvider) Symbols(ctx context.Context) ([]models.SymbolMeta, error) {
	rows, err := p.conn.QueryContext(ctx, `SELECT symbol, market_cap, sector FROM symbol_universe ORDER BY added_at ASC, id ASC`)
	if err != nil {
		return p.staticRoster(), nil
	}
	defer rows.Close()

	var out []models.SymbolMeta
	for rows.Next() {
		var meta models.SymbolMeta
		if err := rows.Scan(&meta.Symbol, &meta.MarketCap, &meta.Sector); err != nil {
			return nil, errs.New(errs.Corruption, "universe.Symbols", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Transient, "universe.Symbols", err)
	}

	if len(out) == 0 {
		return p.staticRoster(), nil
	}
	return out, nil
}

func (p *SQLiteProvider) staticRoster() []models.SymbolMeta {
	out := make([]models.SymbolMeta, len(p.staticFallback))
	for i, sym := range p.staticFallback {
		out[i] = models.SymbolMeta{Symbol: sym}
	}
	return out
}

// AddSymbol adds (or updates the metadata of) a symbol in the roster.
func (p *SQLiteProvider) AddSymbol(ctx context.Context, meta models.SymbolMeta) error {
	_, err := p.conn.ExecContext(ctx, `
		INSERT INTO symbol_universe (symbol, market_cap, sector) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET market_cap = excluded.market_cap, sector = excluded.sector;
	`, meta.Symbol, meta.MarketCap, meta.Sector)
	if err != nil {
		return errs.New(errs.Transient, "universe.AddSymbol", err)
	}
	return nil
}

// RemoveSymbol removes a symbol from the roster.
func (p *SQLiteProvider) RemoveSymbol(ctx context.Context, symbol string) error {
	_, err := p.conn.ExecContext(ctx, `DELETE FROM symbol_universe WHERE symbol = ?`, symbol)
	if err != nil {
		return errs.New(errs.Transient, "universe.RemoveSymbol", err)
	}
	return nil
}
