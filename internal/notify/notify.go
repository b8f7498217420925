package notify

import (
	"context"
	"errors"
	"time"

	"dipwatch/internal/logger"
	"dipwatch/internal/metrics"
	"dipwatch/internal/models"
)

// Delivery errors
var (
	ErrUnavailable = errors.New("notifier unavailable")
	ErrRejected    = errors.New("notification rejected")
)

// Notifier delivers a fired alert to one channel. Delivery failure is never
// fatal to the monitor engine; callers log it and move on.
type Notifier interface {
	// Name returns the sink identifier (e.g. "telegram", "kafka")
	Name() string

	// Send delivers an alert. Returns an error if delivery fails.
	Send(ctx context.Context, alert *models.Alert) error

	Close() error
}

// Fanout delivers each alert to every configured sink. A failing sink is
// logged and counted but does not stop delivery to the others.
type Fanout struct {
	sinks []Notifier
}

// NewFanout creates a fanout over the given sinks
func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

// Send delivers to all sinks; the returned error joins per-sink failures
func (f *Fanout) Send(ctx context.Context, alert *models.Alert) error {
	log := logger.WithComponent("notify")

	var errs []error
	for _, sink := range f.sinks {
		start := time.Now()
		err := sink.Send(ctx, alert)
		duration := time.Since(start)

		metrics.NotifyDuration.Observe(duration.Seconds())

		if err != nil {
			log.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("symbol", alert.Symbol).
				Str("alert_id", alert.ID).
				Msg("alert delivery failed")
			metrics.NotifyTotal.WithLabelValues(sink.Name(), "failed").Inc()
			errs = append(errs, err)
			continue
		}

		log.Debug().
			Str("sink", sink.Name()).
			Str("symbol", alert.Symbol).
			Dur("duration", duration).
			Msg("alert delivered")
		metrics.NotifyTotal.WithLabelValues(sink.Name(), "success").Inc()
	}

	return errors.Join(errs...)
}

// Close closes all sinks
func (f *Fanout) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the structured log. Useful for development
// and as a last-resort sink when no channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, alert *models.Alert) error {
	log := logger.WithComponent("notify")
	log.Info().
		Str("symbol", alert.Symbol).
		Str("severity", string(alert.Severity)).
		Float64("pct_change", alert.Observation.PctChange).
		Msg(alert.Message())
	return nil
}

func (n *LogNotifier) Close() error { return nil }
