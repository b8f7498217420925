package models

import (
	"errors"
	"strings"
)

// WatchlistEntry describes one tracked symbol and its alert policy inputs.
type WatchlistEntry struct {
	// Ticker symbol, unique within the watchlist
	Symbol string `json:"symbol"`

	// Dip threshold in percent; a drop of at least this much qualifies
	Threshold float64 `json:"threshold"`

	// Human-readable company name used in alert messages
	Label string `json:"label"`
}

// Validation errors
var (
	ErrEmptySymbol      = errors.New("symbol cannot be empty")
	ErrSymbolTooLong    = errors.New("symbol exceeds maximum length")
	ErrInvalidThreshold = errors.New("threshold must be greater than zero")
	ErrEmptyLabel       = errors.New("label cannot be empty")
)

const MaxSymbolLength = 12

// Validate checks that the entry has all required fields and valid values
func (e *WatchlistEntry) Validate() error {
	if e.Symbol == "" {
		return ErrEmptySymbol
	}

	if len(e.Symbol) > MaxSymbolLength {
		return ErrSymbolTooLong
	}

	if e.Threshold <= 0 {
		return ErrInvalidThreshold
	}

	if e.Label == "" {
		return ErrEmptyLabel
	}

	return nil
}

// Normalize applies field normalization to a WatchlistEntry
// - upper-cases and trims Symbol
// - trims Label
func (e *WatchlistEntry) Normalize() {
	e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
	e.Label = strings.TrimSpace(e.Label)
}
