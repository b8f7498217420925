package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"dipwatch/internal/engine"
	"dipwatch/internal/logger"
	"dipwatch/internal/models"
	"dipwatch/internal/watchlist"
)

// API serves the command interface: watchlist management, manual checks,
// and status.
type API struct {
	engine        *engine.Engine
	watchlistPath string
}

// Config holds command API configuration
type Config struct {
	Engine *engine.Engine

	// WatchlistPath, when set, is rewritten after every add/remove so the
	// watchlist survives restarts.
	WatchlistPath string
}

// New creates the command API
func New(cfg Config) *API {
	return &API{
		engine:        cfg.Engine,
		watchlistPath: cfg.WatchlistPath,
	}
}

// Register installs the command routes on a mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /watchlist", a.HandleList)
	mux.HandleFunc("POST /watchlist", a.HandleAdd)
	mux.HandleFunc("DELETE /watchlist/{symbol}", a.HandleRemove)
	mux.HandleFunc("POST /check", a.HandleCheck)
	mux.HandleFunc("GET /status", a.HandleStatus)
}

// addRequest is the add-symbol payload
type addRequest struct {
	Symbol    string  `json:"symbol"`
	Threshold float64 `json:"threshold"`
	Label     string  `json:"label"`
}

// listResponse wraps the ordered watchlist
type listResponse struct {
	Count   int                     `json:"count"`
	Entries []models.WatchlistEntry `json:"entries"`
}

// HandleList returns all watched symbols in insertion order
func (a *API) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := a.engine.Watchlist().Snapshot()
	a.writeJSON(w, http.StatusOK, listResponse{
		Count:   len(entries),
		Entries: entries,
	})
}

// HandleAdd inserts or updates a watchlist entry
func (a *API) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry := models.WatchlistEntry{
		Symbol:    req.Symbol,
		Threshold: req.Threshold,
		Label:     req.Label,
	}
	if err := a.engine.Watchlist().Add(entry); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a.saveWatchlist()

	entry.Normalize()
	a.writeJSON(w, http.StatusCreated, entry)
}

// HandleRemove deletes a symbol from the watchlist
func (a *API) HandleRemove(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		a.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if !a.engine.Watchlist().Remove(symbol) {
		a.writeError(w, http.StatusNotFound, "symbol not watched")
		return
	}

	a.saveWatchlist()

	a.writeJSON(w, http.StatusOK, map[string]string{"removed": symbol})
}

// saveWatchlist persists the watchlist seed file; failure is logged only
func (a *API) saveWatchlist() {
	if a.watchlistPath == "" {
		return
	}
	if err := watchlist.SaveFile(a.engine.Watchlist(), a.watchlistPath); err != nil {
		log := logger.WithComponent("handlers")
		log.Error().
			Err(err).
			Str("path", a.watchlistPath).
			Msg("failed to save watchlist")
	}
}

// writeJSON writes a JSON response
func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes an error response
func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
