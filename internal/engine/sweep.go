package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dipwatch/internal/logger"
	"dipwatch/internal/metrics"
	"dipwatch/internal/models"
	"dipwatch/internal/policy"
	"dipwatch/internal/source"
)

// SweepError records one symbol's fetch failure during a sweep
type SweepError struct {
	Symbol string `json:"symbol"`
	Err    error  `json:"-"`
}

// SweepResult summarizes one full pass over the watchlist. Ephemeral:
// consumed by the caller for logging and command responses, never persisted.
type SweepResult struct {
	ItemsChecked int           `json:"items_checked"`
	AlertsFired  int           `json:"alerts_fired"`
	Errors       []SweepError  `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// sweep iterates an immutable snapshot of the watchlist in insertion order.
// One symbol's failure never aborts the pass; cancellation is checked
// between items and the partial result is returned.
func (e *Engine) sweep(ctx context.Context) *SweepResult {
	log := logger.WithComponent("sweep")

	snapshot := e.watchlist.Snapshot()
	result := &SweepResult{}

	log.Info().Int("items", len(snapshot)).Msg("sweep started")

	for _, entry := range snapshot {
		if err := e.pace(ctx); err != nil {
			log.Info().
				Int("checked", result.ItemsChecked).
				Int("remaining", len(snapshot)-result.ItemsChecked).
				Msg("sweep cancelled")
			break
		}

		e.checkSymbol(ctx, entry, result)
	}

	log.Info().
		Int("checked", result.ItemsChecked).
		Int("alerts", result.AlertsFired).
		Int("errors", len(result.Errors)).
		Msg("sweep completed")

	return result
}

// pace blocks until the next fetch slot, or until ctx is cancelled. With no
// limiter configured it only checks for cancellation.
func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return ctx.Err()
	}
	return e.limiter.Wait(ctx)
}

// checkSymbol fetches one observation, evaluates the alert policy against
// it, and delivers a fired alert.
func (e *Engine) checkSymbol(ctx context.Context, entry models.WatchlistEntry, result *SweepResult) {
	log := logger.WithSymbol(entry.Symbol)

	result.ItemsChecked++

	obs, err := e.source.Fetch(ctx, entry.Symbol)
	if err != nil {
		log.Warn().Err(err).Msg("observation fetch failed")
		metrics.FetchTotal.WithLabelValues(string(source.Kind(err))).Inc()
		metrics.SweepItemErrors.Inc()
		result.Errors = append(result.Errors, SweepError{Symbol: entry.Symbol, Err: err})
		return
	}
	metrics.FetchTotal.WithLabelValues("ok").Inc()

	now := e.now()
	lastAlert := e.lastAlertRef(entry.Symbol)

	fire, severity := policy.Evaluate(entry, *obs, lastAlert, now)
	if !fire {
		// Count dips that only the cooldown window held back
		if wouldFire, _ := policy.Evaluate(entry, *obs, nil, now); wouldFire {
			log.Debug().
				Float64("pct_change", obs.PctChange).
				Time("last_alert", *lastAlert).
				Msg("alert suppressed by cooldown")
			metrics.AlertsSuppressed.Inc()
		}
		return
	}

	alert := &models.Alert{
		ID:          uuid.New().String(),
		Symbol:      entry.Symbol,
		Label:       entry.Label,
		Severity:    severity,
		Threshold:   entry.Threshold,
		Observation: *obs,
		FiredAt:     now,
	}

	if err := e.notifier.Send(ctx, alert); err != nil {
		// Delivery failure is logged, not recorded as a sweep error.
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("alert delivery failed")
	}

	// The cooldown stamp is written whether or not delivery succeeded, so a
	// dead notifier cannot produce an alert storm when it recovers.
	e.setLastAlert(entry.Symbol, now)
	result.AlertsFired++
	metrics.AlertsFired.WithLabelValues(string(severity)).Inc()

	log.Info().
		Str("severity", string(severity)).
		Float64("pct_change", obs.PctChange).
		Float64("price", obs.Price).
		Msg("dip alert fired")
}
