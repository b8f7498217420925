package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dipwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Sweep metrics
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_sweeps_total",
			Help: "Total number of sweeps triggered",
		},
		[]string{"trigger", "outcome"}, // trigger: scheduled, manual; outcome: completed, busy
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dipwatch_sweep_duration_seconds",
			Help:    "Time taken for one full watchlist sweep",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	SweepItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_sweep_item_errors_total",
			Help: "Total number of per-item errors recorded during sweeps",
		},
	)

	// Quote fetch metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_fetch_total",
			Help: "Total number of observation fetches",
		},
		[]string{"status"}, // status: ok, not_found, unavailable, malformed
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dipwatch_fetch_duration_seconds",
			Help:    "Time taken to fetch one observation",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Alert metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_alerts_fired_total",
			Help: "Total number of dip alerts fired",
		},
		[]string{"severity"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by the cooldown window",
		},
	)

	NotifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_notify_total",
			Help: "Total number of alert delivery attempts",
		},
		[]string{"sink", "status"}, // status: success, failed
	)

	NotifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dipwatch_notify_duration_seconds",
			Help:    "Time taken to deliver an alert",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Engine metrics
	BusyRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_engine_busy_rejections_total",
			Help: "Total number of sweep triggers rejected because a sweep was already running",
		},
	)

	WatchlistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_watchlist_size",
			Help: "Current number of watched symbols",
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
