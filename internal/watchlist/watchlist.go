package watchlist

import (
	"sync"

	"dipwatch/internal/metrics"
	"dipwatch/internal/models"
)

// Watchlist is an ordered-insertion set of tracked symbols. External command
// handling mutates it; the monitor engine only ever reads snapshots, so a
// sweep never observes a mutation mid-iteration.
type Watchlist struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]models.WatchlistEntry
}

// New creates an empty watchlist
func New() *Watchlist {
	return &Watchlist{
		entries: make(map[string]models.WatchlistEntry),
	}
}

// Add inserts or updates an entry. The entry is normalized and validated
// first; updating an existing symbol keeps its original position.
func (w *Watchlist) Add(entry models.WatchlistEntry) error {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entries[entry.Symbol]; !exists {
		w.order = append(w.order, entry.Symbol)
	}
	w.entries[entry.Symbol] = entry

	metrics.WatchlistSize.Set(float64(len(w.entries)))
	return nil
}

// Remove deletes a symbol, reporting whether it was present
func (w *Watchlist) Remove(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entries[symbol]; !exists {
		return false
	}

	delete(w.entries, symbol)
	for i, s := range w.order {
		if s == symbol {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}

	metrics.WatchlistSize.Set(float64(len(w.entries)))
	return true
}

// Get returns the entry for a symbol
func (w *Watchlist) Get(symbol string) (models.WatchlistEntry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entry, ok := w.entries[symbol]
	return entry, ok
}

// Snapshot returns a copy of all entries in insertion order. The copy is
// immune to concurrent Add/Remove calls, which is what gives one sweep its
// stable, deterministic iteration order.
func (w *Watchlist) Snapshot() []models.WatchlistEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snapshot := make([]models.WatchlistEntry, 0, len(w.order))
	for _, symbol := range w.order {
		snapshot = append(snapshot, w.entries[symbol])
	}
	return snapshot
}

// Len returns the number of watched symbols
func (w *Watchlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
