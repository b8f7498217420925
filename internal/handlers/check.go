package handlers

import (
	"errors"
	"net/http"

	"dipwatch/internal/engine"
	"dipwatch/internal/metrics"
)

// checkResponse is the manual-trigger result payload
type checkResponse struct {
	ItemsChecked int          `json:"items_checked"`
	AlertsFired  int          `json:"alerts_fired"`
	DurationMs   int64        `json:"duration_ms"`
	Errors       []checkError `json:"errors,omitempty"`
}

// checkError is one symbol's failure within a sweep
type checkError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// statusResponse reports engine and watchlist state
type statusResponse struct {
	Watched     int    `json:"watched"`
	EngineState string `json:"engine_state"`
	SweepsRun   uint64 `json:"sweeps_run"`
	AlertsFired uint64 `json:"alerts_fired"`
	ItemErrors  uint64 `json:"item_errors"`
}

// HandleCheck runs a manual sweep. A sweep already in progress is reported
// as 409 Conflict rather than queued or silently dropped.
func (a *API) HandleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.TriggerSweep(r.Context())

	if errors.Is(err, engine.ErrSweepInProgress) {
		metrics.SweepsTotal.WithLabelValues("manual", "busy").Inc()
		a.writeError(w, http.StatusConflict, "check already running")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.SweepsTotal.WithLabelValues("manual", "completed").Inc()

	resp := checkResponse{
		ItemsChecked: result.ItemsChecked,
		AlertsFired:  result.AlertsFired,
		DurationMs:   result.Duration.Milliseconds(),
	}
	for _, sweepErr := range result.Errors {
		resp.Errors = append(resp.Errors, checkError{
			Symbol: sweepErr.Symbol,
			Error:  sweepErr.Err.Error(),
		})
	}

	a.writeJSON(w, http.StatusOK, resp)
}

// HandleStatus reports the watchlist size and run-guard state
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	stats := a.engine.Stats()
	a.writeJSON(w, http.StatusOK, statusResponse{
		Watched:     a.engine.Watchlist().Len(),
		EngineState: a.engine.State(),
		SweepsRun:   stats.SweepsRun,
		AlertsFired: stats.AlertsFired,
		ItemErrors:  stats.ItemErrors,
	})
}
