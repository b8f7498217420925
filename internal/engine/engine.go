package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"dipwatch/internal/metrics"
	"dipwatch/internal/notify"
	"dipwatch/internal/source"
	"dipwatch/internal/watchlist"
)

// ErrSweepInProgress is returned when a sweep is triggered while another is
// running. It is an expected control outcome, not a failure: callers log it
// or surface "already running" and move on.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Engine owns the watchlist, the per-symbol alert history, and the exclusive
// run guard shared by the scheduler and manual triggers.
type Engine struct {
	watchlist *watchlist.Watchlist
	source    source.Source
	notifier  notify.Notifier
	limiter   *rate.Limiter

	// Run guard: at most one sweep is in progress at any instant.
	running atomic.Bool

	// Per-symbol last alert timestamps; absent means never alerted.
	// In-memory only, lost on restart.
	mu         sync.Mutex
	lastAlerts map[string]time.Time

	// Stats
	sweepsRun   atomic.Uint64
	alertsFired atomic.Uint64
	itemErrors  atomic.Uint64

	now func() time.Time
}

// Config holds engine construction parameters
type Config struct {
	Watchlist *watchlist.Watchlist
	Source    source.Source
	Notifier  notify.Notifier

	// InterItemDelay paces fetches within a sweep to avoid bursting the
	// quote provider. Zero disables pacing.
	InterItemDelay time.Duration
}

// New creates a monitor engine
func New(cfg Config) *Engine {
	var limiter *rate.Limiter
	if cfg.InterItemDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.InterItemDelay), 1)
	}

	return &Engine{
		watchlist:  cfg.Watchlist,
		source:     cfg.Source,
		notifier:   cfg.Notifier,
		limiter:    limiter,
		lastAlerts: make(map[string]time.Time),
		now:        time.Now,
	}
}

// TriggerSweep runs one full watchlist sweep. Exactly one of any set of
// concurrent callers proceeds; the rest get ErrSweepInProgress immediately,
// with no queueing and no side effects. The guard is released on every exit
// path, including cancellation.
func (e *Engine) TriggerSweep(ctx context.Context) (*SweepResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		metrics.BusyRejections.Inc()
		return nil, ErrSweepInProgress
	}
	defer e.running.Store(false)

	start := time.Now()
	result := e.sweep(ctx)
	result.Duration = time.Since(start)

	metrics.SweepDuration.Observe(result.Duration.Seconds())
	e.sweepsRun.Add(1)
	e.alertsFired.Add(uint64(result.AlertsFired))
	e.itemErrors.Add(uint64(len(result.Errors)))

	return result, nil
}

// State reports the run-guard state, "idle" or "running"
func (e *Engine) State() string {
	if e.running.Load() {
		return "running"
	}
	return "idle"
}

// Watchlist returns the engine's watchlist for command handling
func (e *Engine) Watchlist() *watchlist.Watchlist {
	return e.watchlist
}

// LastAlert returns when a symbol last alerted, if ever
func (e *Engine) LastAlert(symbol string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.lastAlerts[symbol]
	return t, ok
}

func (e *Engine) lastAlertRef(symbol string) *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.lastAlerts[symbol]; ok {
		return &t
	}
	return nil
}

func (e *Engine) setLastAlert(symbol string, t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastAlerts[symbol] = t
}

// Stats returns engine counters
func (e *Engine) Stats() Stats {
	return Stats{
		SweepsRun:   e.sweepsRun.Load(),
		AlertsFired: e.alertsFired.Load(),
		ItemErrors:  e.itemErrors.Load(),
	}
}

// Stats holds engine counters
type Stats struct {
	SweepsRun   uint64
	AlertsFired uint64
	ItemErrors  uint64
}
