package source

import (
	"context"
	"sync"
	"time"

	"dipwatch/internal/models"
)

// StaticSource serves canned observations from memory. Used for local
// development without a quote provider, and in tests.
type StaticSource struct {
	mu           sync.RWMutex
	observations map[string]models.Observation
	failures     map[string]error
}

// NewStaticSource creates an empty static source
func NewStaticSource() *StaticSource {
	return &StaticSource{
		observations: make(map[string]models.Observation),
		failures:     make(map[string]error),
	}
}

// Set installs the observation returned for a symbol
func (s *StaticSource) Set(obs models.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations[obs.Symbol] = obs
	delete(s.failures, obs.Symbol)
}

// Fail makes fetches for a symbol return err
func (s *StaticSource) Fail(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[symbol] = err
	delete(s.observations, symbol)
}

// Fetch returns the canned observation for a symbol
func (s *StaticSource) Fetch(ctx context.Context, symbol string) (*models.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failures[symbol]; ok {
		return nil, err
	}

	obs, ok := s.observations[symbol]
	if !ok {
		return nil, NewFetchError(symbol, KindNotFound, nil)
	}

	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now().UTC()
	}
	return &obs, nil
}
