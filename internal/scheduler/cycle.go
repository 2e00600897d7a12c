package scheduler

import (
	"context"
	"time"

	"marketanalysis/internal/indicator"
	"marketanalysis/internal/models"
	"marketanalysis/internal/utils"
)

// runCycle walks the symbol universe once, applying the freshness check,
// global pace, fetch-with-retry, indicator computation, and persistence for
// each symbol in turn. It is the RUNNING phase of the cycle state machine;
// Start/triggerCycle own the IDLE boundary around it, and the query cache
// flush at the end stands in for SETTLING.
func (s *Scheduler) runCycle(ctx context.Context) {
	symbols, err := s.universe.Symbols(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to load symbol universe, aborting cycle")
		return
	}

	p := models.CycleProgress{TotalSymbols: len(symbols), CycleStart: s.now()}
	s.bus.Publish(p)
	s.log.WithField("symbols", len(symbols)).Info("cycle entering RUNNING")

	for _, meta := range symbols {
		select {
		case <-ctx.Done():
			s.log.Warn("cycle cancelled at symbol boundary")
			return
		default:
		}

		sym := meta.Symbol
		p.CurrentSymbol = &sym

		if s.processSymbol(ctx, meta, &p) {
			s.bus.Publish(p)
		}
	}

	s.cache.InvalidateQueries()
	p.CurrentSymbol = nil
	s.bus.Publish(p)
	s.log.WithFields(map[string]any{
		"analyzed": p.AnalyzedInCycle,
		"skipped":  p.SkippedInCycle,
		"errors":   p.ErrorsInCycle,
	}).Info("cycle complete, SETTLING then IDLE")
}

// processSymbol handles one symbol's freshness check, fetch, and persist. It
// mutates p's counters in place and returns whether p changed. It returns
// false only when the pacing sleep is interrupted by cancellation, in which
// case no counter moves.
func (s *Scheduler) processSymbol(ctx context.Context, meta models.SymbolMeta, p *models.CycleProgress) bool {
	sym := meta.Symbol

	existing, err := s.store.Get(ctx, sym)
	if err != nil {
		s.log.WithError(err).WithField("symbol", sym).Warn("store read failed, skipping symbol this cycle")
		p.ErrorsInCycle++
		return true
	}

	if existing != nil && s.now().Sub(existing.AnalyzedAt) < s.cfg.IntervalDuration() {
		p.SkippedInCycle++
		return true
	}

	if err := s.pace(ctx); err != nil {
		return false
	}

	series, err := s.fetcher.Fetch(ctx, sym, s.cfg.HistoryWindowDays)
	if err != nil {
		s.log.WithError(err).WithField("symbol", sym).Warn("fetch failed")
		p.ErrorsInCycle++
		return true
	}

	analysis := s.buildAnalysis(meta, series, existing)

	if err := s.store.Upsert(ctx, analysis); err != nil {
		s.log.WithError(err).WithField("symbol", sym).Error("upsert failed")
		p.ErrorsInCycle++
		return true
	}
	s.cache.PutSymbol(analysis)

	p.AnalyzedInCycle++
	return true
}

// buildAnalysis runs the indicator battery over a freshly fetched series and
// assembles the Analysis record. analyzedAt is clamped strictly after any
// existing record's timestamp so cache/store readers never observe time
// moving backwards for a symbol.
func (s *Scheduler) buildAnalysis(meta models.SymbolMeta, series models.PriceSeries, existing *models.Analysis) models.Analysis {
	closes := series.Closes()
	last, _ := series.Last()

	ts := s.now()
	if existing != nil && !ts.After(existing.AnalyzedAt) {
		ts = existing.AnalyzedAt.Add(time.Nanosecond)
	}

	a := models.Analysis{
		Symbol:     meta.Symbol,
		Price:      last.Close,
		RSI:        indicator.RSI(14, closes),
		SMA20:      indicator.SMA(20, closes),
		SMA50:      indicator.SMA(50, closes),
		MACD:       indicator.MACD(12, 26, 9, closes),
		Volume:     utils.Int64Ptr(last.Volume),
		MarketCap:  meta.MarketCap,
		Sector:     meta.Sector,
		AnalyzedAt: ts,
	}
	a.Classify()
	return a
}

// pace blocks until at least RequestBaseDelay (plus jitter) has elapsed
// since the previous fetch, tracked as a single last-request timestamp
// guarded by this Scheduler — no per-symbol state, so the limit applies
// globally across the whole universe.
func (s *Scheduler) pace(ctx context.Context) error {
	s.paceMu.Lock()
	elapsed := s.now().Sub(s.lastFetch)
	jitterMax := s.cfg.RequestJitterMax()
	var jitter time.Duration
	if jitterMax > 0 {
		jitter = time.Duration(s.rnd.Int63n(int64(jitterMax) + 1))
	}
	target := s.cfg.RequestBaseDelay() + jitter
	wait := target - elapsed
	s.paceMu.Unlock()

	if wait > 0 {
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}

	s.paceMu.Lock()
	s.lastFetch = s.now()
	s.paceMu.Unlock()
	return nil
}
