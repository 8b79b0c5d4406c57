// Package ttlsweep implements the §4.10 TTL-sweep scheduler: a ticker that
// periodically invokes each graphstore deactivate_expired_* operation and
// logs the counts. Directly adapted from the teacher's
// internal/scheduler/scheduler.go Run(ctx)/tick(ctx) ticker+select loop,
// including its hot-reload-aware interval re-read on every tick — this
// sweep has no external-system dependency beyond the graph client and no
// need for durable retry history, so the simpler ticker idiom is kept
// rather than modeled as a further Temporal workflow (see DESIGN.md).
package ttlsweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/actiquest-dev/membria-core/internal/config"
)

// GraphStore is the narrow deactivation surface the sweep needs.
type GraphStore interface {
	DeactivateExpiredDecisions(ctx context.Context, nowTS int64) (int64, error)
	DeactivateExpiredOutcomes(ctx context.Context, nowTS int64) (int64, error)
	DeactivateExpiredNegativeKnowledge(ctx context.Context, nowTS int64) (int64, error)
	DeactivateExpiredSkills(ctx context.Context, nowTS int64) (int64, error)
	DeactivateExpiredSessionContexts(ctx context.Context, nowTS int64) (int64, error)
}

// Sweeper runs the TTL-sweep tick loop.
type Sweeper struct {
	cfgMgr config.ConfigManager
	store  GraphStore
	logger *slog.Logger
	now    func() int64
}

// New creates a Sweeper that reads its interval from cfgMgr on each tick, so
// a config reload takes effect without restarting the loop.
func New(cfgMgr config.ConfigManager, store GraphStore, logger *slog.Logger, now func() int64) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Sweeper{cfgMgr: cfgMgr, store: store, logger: logger, now: now}
}

// Run blocks until ctx is cancelled, ticking at the configured sweep
// interval. A missed tick causes no data loss: sweeps are idempotent.
func (s *Sweeper) Run(ctx context.Context) {
	cfg := s.cfgMgr.Get()
	interval := cfg.Scheduler.SweepInterval.Duration
	if interval <= 0 {
		interval = 300 * time.Second
	}
	s.logger.Info("ttl sweeper started", "sweep_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ttl sweeper stopping")
			return
		case <-ticker.C:
			s.tick(ctx)

			newCfg := s.cfgMgr.Get()
			newInterval := newCfg.Scheduler.SweepInterval.Duration
			if newInterval > 0 && newInterval != interval {
				ticker.Reset(newInterval)
				interval = newInterval
				s.logger.Info("ttl sweeper interval changed", "sweep_interval", interval)
			}
		}
	}
}

// tick runs one bounded sweep across every expirable node kind, logging the
// deactivation counts. A failure in one deactivation never blocks the rest.
func (s *Sweeper) tick(ctx context.Context) {
	nowTS := s.now()

	sweeps := []struct {
		name string
		fn   func(context.Context, int64) (int64, error)
	}{
		{"decisions", s.store.DeactivateExpiredDecisions},
		{"outcomes", s.store.DeactivateExpiredOutcomes},
		{"negative_knowledge", s.store.DeactivateExpiredNegativeKnowledge},
		{"skills", s.store.DeactivateExpiredSkills},
		{"session_contexts", s.store.DeactivateExpiredSessionContexts},
	}

	for _, sweep := range sweeps {
		count, err := sweep.fn(ctx, nowTS)
		if err != nil {
			s.logger.Error("ttl sweep failed", "kind", sweep.name, "error", err)
			continue
		}
		if count > 0 {
			s.logger.Info("ttl sweep deactivated records", "kind", sweep.name, "count", count)
		}
	}
}
