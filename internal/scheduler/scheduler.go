// Package scheduler implements the engine's IDLE -> RUNNING -> SETTLING ->
// IDLE cycle loop described in §4.6: per-symbol freshness checks, global
// pacing, rate-limited fetch via the quote fetcher, indicator computation,
// persistence, and progress publication.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"marketanalysis/internal/cache"
	"marketanalysis/internal/config"
	"marketanalysis/internal/progress"
	"marketanalysis/internal/quote"
	"marketanalysis/internal/store"
	"marketanalysis/internal/universe"
)

// Scheduler is the heart of the engine: the long-lived task that walks the
// symbol universe once per cycle.
type Scheduler struct {
	store    store.Store
	cache    *cache.Cache
	fetcher  quote.Fetcher
	bus      *progress.Bus
	universe universe.Provider
	cfg      config.AnalysisConfig
	log      *logrus.Entry

	cron   *cron.Cron
	mu     sync.Mutex
	running bool

	paceMu    sync.Mutex
	lastFetch time.Time

	rnd   *rand.Rand
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Scheduler from its collaborators, all held by capability per
// the "no global mutable singletons" design note — nothing here reaches for
// a package-level instance of anything.
func New(st store.Store, c *cache.Cache, fetcher quote.Fetcher, bus *progress.Bus, uni universe.Provider, cfg config.AnalysisConfig, log *logrus.Entry) *Scheduler {
	s := &Scheduler{
		store:    st,
		cache:    c,
		fetcher:  fetcher,
		bus:      bus,
		universe: uni,
		cfg:      cfg,
		log:      log.WithField("component", "scheduler"),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.now = time.Now
	s.sleep = s.defaultSleep
	return s
}

func (s *Scheduler) defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start warms the cache from the store, schedules the cycle-repeat trigger,
// and kicks off an initial cycle immediately. ctx governs the lifetime of
// every cycle this Scheduler runs; cancelling it drains cycle work at the
// next symbol boundary.
func (s *Scheduler) Start(ctx context.Context) error {
	all, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm cache from store: %w", err)
	}
	s.cache.WarmSymbols(all)

	cronExpr, err := intervalToCron(s.cfg.CycleCheckDuration())
	if err != nil {
		return fmt.Errorf("failed to convert cycle_check_interval to a cron expression: %w", err)
	}

	s.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := s.cron.AddFunc(cronExpr, func() { s.triggerCycle(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cycle trigger: %w", err)
	}
	s.cron.Start()

	s.log.WithField("cycle_check_interval", s.cfg.CycleCheckDuration()).Info("scheduler started")
	go s.triggerCycle(ctx)

	return nil
}

// Stop halts the cron trigger. It does not forcibly cancel an in-flight
// cycle; callers should cancel the ctx passed to Start for that.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.log.Info("scheduler stopped")
	}
}

// ForceCycle triggers an immediate cycle, skipping the cron-scheduled wait.
// A no-op if a cycle is already running.
func (s *Scheduler) ForceCycle(ctx context.Context) {
	go s.triggerCycle(ctx)
}

// IsRunning reports whether a cycle is currently in progress.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) triggerCycle(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Debug("cycle already running, skipping trigger")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.runCycle(ctx)
}

// intervalToCron converts a cycle-check duration to a cron expression,
// generalizing the teacher's collection-interval conversion.
func intervalToCron(interval time.Duration) (string, error) {
	switch {
	case interval == time.Minute:
		return "* * * * *", nil
	case interval == 5*time.Minute:
		return "*/5 * * * *", nil
	case interval == 10*time.Minute:
		return "*/10 * * * *", nil
	case interval == 15*time.Minute:
		return "*/15 * * * *", nil
	case interval == 30*time.Minute:
		return "*/30 * * * *", nil
	case interval == time.Hour:
		return "0 * * * *", nil
	default:
		minutes := int(interval.Minutes())
		if minutes <= 0 {
			return "", fmt.Errorf("invalid cycle_check_interval: %v", interval)
		}
		if minutes >= 60 {
			return "0 * * * *", nil
		}
		return fmt.Sprintf("*/%d * * * *", minutes), nil
	}
}
