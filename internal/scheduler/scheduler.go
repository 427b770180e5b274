package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobtrail/internal/pipeline"
)

// Runner performs one full pass over every source.
type Runner interface {
	RunOnce(ctx context.Context) pipeline.Summary
}

// Scheduler owns the daemon loop: it runs the pipeline, waits the interval, and repeats.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that re-runs runner at the given interval.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then waits interval after
// each cycle finishes. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	for {
		sum := s.runner.RunOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("shutting down scheduler")
			return nil
		}
		s.logger.Info("next run scheduled",
			"run_id", sum.RunID,
			"new", sum.Processed,
			"at", time.Now().Add(s.interval).Format(time.Kitchen),
		)

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
		}
	}
}
