package source

import (
	"context"
	"errors"
	"fmt"

	"dipwatch/internal/models"
)

// Source produces point-in-time market observations for symbols.
// Retry and backoff toward a real provider are the implementation's concern.
type Source interface {
	Fetch(ctx context.Context, symbol string) (*models.Observation, error)
}

// ErrorKind classifies fetch failures
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "unavailable"
	KindMalformed   ErrorKind = "malformed"
)

// FetchError is a per-symbol fetch failure. Sweeps record these and move on;
// they never abort a sweep.
type FetchError struct {
	Symbol string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Symbol, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps a cause with a symbol and kind
func NewFetchError(symbol string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Symbol: symbol, Kind: kind, Err: err}
}

// Kind extracts the error kind from a fetch error chain; unknown errors
// count as unavailable.
func Kind(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnavailable
}
