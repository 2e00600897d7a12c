package models

import "time"

// HistoricalBar is one trading day's OHLCV for a symbol.
type HistoricalBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// PriceSeries is an ordered (ascending by date) sequence of bars for one symbol.
type PriceSeries struct {
	Symbol string
	Bars   []HistoricalBar
}

// Closes extracts the close price of every bar, in date order.
func (ps PriceSeries) Closes() []float64 {
	closes := make([]float64, len(ps.Bars))
	for i, b := range ps.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar and whether the series is non-empty.
func (ps PriceSeries) Last() (HistoricalBar, bool) {
	if len(ps.Bars) == 0 {
		return HistoricalBar{}, false
	}
	return ps.Bars[len(ps.Bars)-1], true
}

// SymbolMeta is the (symbol, market_cap?, sector?) tuple the symbol universe supplies.
type SymbolMeta struct {
	Symbol    string
	MarketCap *float64
	Sector    *string
}
