package models

import (
	"time"

	"marketanalysis/internal/indicator"
)

// Analysis is the per-symbol result the scheduler produces and the query
// layer reads back. Indicator fields are nil when the underlying PriceSeries
// was too short to compute them; that is not an error (see errs.Insufficient).
type Analysis struct {
	Symbol       string
	Price        float64
	RSI          *float64
	SMA20        *float64
	SMA50        *float64
	MACD         *indicator.MACDValue
	Volume       *int64
	MarketCap    *float64
	Sector       *string
	IsOversold   bool
	IsOverbought bool
	AnalyzedAt   time.Time
}

// Classify derives IsOversold/IsOverbought from RSI and sets them on the
// receiver, via the same kernel function the scheduler's own freshly
// computed Analyses go through.
func (a *Analysis) Classify() {
	a.IsOversold, a.IsOverbought = indicator.Classify(a.RSI)
}

// CycleProgress is the single process-wide value the scheduler publishes.
type CycleProgress struct {
	TotalSymbols    int
	AnalyzedInCycle int
	SkippedInCycle  int
	ErrorsInCycle   int
	CurrentSymbol   *string
	CycleStart      time.Time
}
