// Package engine wires the store, cache, progress bus, symbol universe,
// scheduler, and query layer into the single object the rest of the system
// talks to, and exposes the boundary surface from §6 as Go methods.
package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"marketanalysis/internal/cache"
	"marketanalysis/internal/config"
	"marketanalysis/internal/models"
	"marketanalysis/internal/progress"
	"marketanalysis/internal/query"
	"marketanalysis/internal/quote"
	"marketanalysis/internal/scheduler"
	"marketanalysis/internal/store"
	"marketanalysis/internal/universe"
)

// Engine is the engine's single composition root. Nothing here is a
// package-level singleton; every collaborator is held by reference and
// passed in at construction.
type Engine struct {
	store     store.Store
	cache     *cache.Cache
	bus       *progress.Bus
	universe  universe.Provider
	fetcher   quote.Fetcher
	scheduler *scheduler.Scheduler
	query     *query.Engine
	cfg       *config.Config
	log       *logrus.Entry
}

// New assembles an Engine from an already-loaded Config. st and uni are
// accepted as interfaces so callers can wire either the sqlite-backed or
// in-memory/static implementations, including in tests.
func New(cfg *config.Config, st store.Store, uni universe.Provider, log *logrus.Entry) *Engine {
	c := cache.New(cfg.Cache.TTL())
	bus := progress.New()
	fetcher := quote.New(quote.Options{
		BaseURL:     cfg.Analysis.QuoteBaseURL,
		HTTPTimeout: cfg.Analysis.HTTPTimeout(),
		RetryMax:    cfg.Analysis.FetchRetryMax,
		BackoffBase: cfg.Analysis.FetchBackoffBase(),
		JitterMax:   cfg.Analysis.RequestJitterMax(),
	})
	sched := scheduler.New(st, c, fetcher, bus, uni, cfg.Analysis, log)
	q := query.New(st, c)

	return &Engine{
		store:     st,
		cache:     c,
		bus:       bus,
		universe:  uni,
		fetcher:   fetcher,
		scheduler: sched,
		query:     q,
		cfg:       cfg,
		log:       log.WithField("component", "engine"),
	}
}

// Start warms the cache and starts the scheduler's cycle loop. ctx governs
// the lifetime of every cycle the engine will ever run.
func (e *Engine) Start(ctx context.Context) error {
	return e.scheduler.Start(ctx)
}

// Stop halts the scheduler's cron trigger. Callers should also cancel the
// ctx passed to Start to interrupt an in-flight cycle.
func (e *Engine) Stop() {
	e.scheduler.Stop()
}

// GetAll returns every Analysis currently in the store, independent of the
// query cache.
func (e *Engine) GetAll(ctx context.Context) ([]models.Analysis, error) {
	return e.store.All(ctx)
}

// Get answers the single-symbol endpoint.
func (e *Engine) Get(ctx context.Context, symbol string) (*models.Analysis, error) {
	return e.query.Get(ctx, symbol)
}

// Filter answers a filtered, sorted, paginated query.
func (e *Engine) Filter(ctx context.Context, f models.Filter) (models.FilterResult, error) {
	return e.query.Filter(ctx, f)
}

// Heatmap answers the sector rollup.
func (e *Engine) Heatmap(ctx context.Context) ([]models.HeatmapCell, error) {
	return e.query.Heatmap(ctx)
}

// ProgressSnapshot returns the most recently published CycleProgress.
func (e *Engine) ProgressSnapshot() models.CycleProgress {
	return e.bus.Snapshot()
}

// ProgressSubscribe registers a new progress subscriber. Callers must
// invoke the returned function when done to release the subscription.
func (e *Engine) ProgressSubscribe() (<-chan models.CycleProgress, func()) {
	return e.bus.Subscribe()
}

// History bypasses the cache and store entirely, calling the fetcher
// directly — used for chart views where the caller wants the full series,
// not just the latest computed Analysis.
func (e *Engine) History(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	return e.fetcher.Fetch(ctx, symbol, days)
}

// ForceCycle triggers an immediate analysis cycle outside the normal
// trigger cadence.
func (e *Engine) ForceCycle(ctx context.Context) {
	e.scheduler.ForceCycle(ctx)
}

// SchedulerRunning reports whether a cycle is currently in progress.
func (e *Engine) SchedulerRunning() bool {
	return e.scheduler.IsRunning()
}
