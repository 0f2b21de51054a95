package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hazardwatch/go-hazard-zones/internal/observability"
)

// PassRunner executes one refresh pass.
type PassRunner interface {
	RunPass(ctx context.Context) error
}

// Scheduler drives refresh passes on a fixed period, independent of any
// individual request. Ticks arriving while a pass is still running are
// skipped, never run concurrently.
type Scheduler struct {
	period  time.Duration
	clock   clockwork.Clock
	runner  PassRunner
	metrics *observability.Metrics
	running atomic.Bool
	wg      sync.WaitGroup
}

func NewScheduler(period time.Duration, clock clockwork.Clock, runner PassRunner, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		period:  period,
		clock:   clock,
		runner:  runner,
		metrics: metrics,
	}
}

// Start runs the initial pass and then ticks until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		slog.Info("refresh scheduler started", "period", s.period)

		s.RunNow(ctx)

		ticker := s.clock.NewTicker(s.period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("refresh scheduler stopping")
				return
			case <-ticker.Chan():
				s.RunNow(ctx)
			}
		}
	}()
}

// RunNow executes one guarded pass. It reports false when a pass was
// already in progress and this one was skipped.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("refresh pass still in progress, skipping")
		s.metrics.PassesSkipped.Inc()
		return false
	}
	defer s.running.Store(false)

	if err := s.runner.RunPass(ctx); err != nil {
		slog.Error("refresh pass failed", "error", err)
	}
	return true
}

// Stop waits for the scheduler goroutine to exit. Callers cancel the Start
// context first; no in-flight pass is interrupted.
func (s *Scheduler) Stop() {
	s.wg.Wait()
}
