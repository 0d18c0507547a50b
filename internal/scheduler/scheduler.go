// Package scheduler drives the recurring engine: one pass at startup, then
// one per tick. The engine's own guard enforces at-most-one concurrent run;
// a tick that fires mid-run is skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"budgetd/internal/log"
	"budgetd/internal/services"
	"budgetd/internal/store"
)

// Runner is the engine entry point the scheduler drives.
type Runner interface {
	ProcessAll(ctx context.Context, now time.Time) (services.Summary, error)
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *log.Logger

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func New(runner Runner, interval time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentScheduler),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduling loop: an immediate startup pass, then one
// pass per interval until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler starting", "interval", s.interval.String())

	go func() {
		defer close(s.done)

		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Scheduler stopping", "reason", "context cancelled")
				return
			case <-s.stop:
				s.logger.Info("Scheduler stopping", "reason", "stop requested")
				return
			case now := <-ticker.C:
				s.runOnce(ctx)
				s.logger.Debug("Next pass scheduled", "at", now.Add(s.interval).Format(time.RFC3339))
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. A pass already in flight runs
// to completion.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

// Running reports whether a pass is currently executing.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// runOnce executes a single engine pass. Any error is logged and swallowed:
// a failed pass must never take the scheduler down.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	summary, err := s.runner.ProcessAll(ctx, time.Now())
	switch {
	case errors.Is(err, store.ErrBusy):
		// Another trigger holds the guard; skip, don't queue.
		s.logger.Debug("Pass skipped, engine busy")
	case err != nil:
		s.logger.Error("Engine pass failed", log.FieldError, err)
	default:
		s.logger.Info("Engine pass complete",
			"rules_processed", summary.RulesProcessed,
			"transactions_generated", summary.TransactionsGenerated,
			"rules_failed", summary.RulesFailed)
	}
}
