package scheduler

import (
	"context"
	"errors"
	"time"

	"dipwatch/internal/engine"
	"dipwatch/internal/logger"
	"dipwatch/internal/metrics"
)

// DefaultInterval is the sweep cadence when none is configured
const DefaultInterval = 15 * time.Minute

// Scheduler triggers periodic sweeps on a fixed interval. It tolerates busy
// rejections and sweep errors; only context cancellation stops the loop.
type Scheduler struct {
	engine   *engine.Engine
	interval time.Duration
}

// New creates a scheduler for the given engine
func New(eng *engine.Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   eng,
		interval: interval,
	}
}

// Run loops until ctx is cancelled. An in-flight sweep is not killed on
// cancellation; TriggerSweep is awaited so the current item finishes and the
// run guard is released before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.WithComponent("scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("scheduler started")
	defer log.Info().Msg("scheduler stopped")

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			result, err := s.engine.TriggerSweep(ctx)

			if errors.Is(err, engine.ErrSweepInProgress) {
				// A manual check is mid-flight; skip this tick, no retry.
				log.Info().Msg("sweep already running, skipping tick")
				metrics.SweepsTotal.WithLabelValues("scheduled", "busy").Inc()
				continue
			}
			if err != nil {
				log.Error().Err(err).Msg("scheduled sweep failed")
				continue
			}

			metrics.SweepsTotal.WithLabelValues("scheduled", "completed").Inc()
			log.Info().
				Int("checked", result.ItemsChecked).
				Int("alerts", result.AlertsFired).
				Int("errors", len(result.Errors)).
				Dur("duration", result.Duration).
				Msg("scheduled sweep completed")
		}
	}
}
