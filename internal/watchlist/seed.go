package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"dipwatch/internal/logger"
	"dipwatch/internal/models"
)

// seedEntry is the on-disk watchlist format, keyed by symbol
type seedEntry struct {
	Threshold float64 `json:"threshold"`
	Name      string  `json:"name"`
}

// defaultSeed is used when no seed source is configured
var defaultSeed = []models.WatchlistEntry{
	{Symbol: "AAPL", Threshold: 3.0, Label: "Apple Inc."},
	{Symbol: "GOOGL", Threshold: 3.0, Label: "Alphabet Inc."},
	{Symbol: "MSFT", Threshold: 3.0, Label: "Microsoft Corp."},
	{Symbol: "TSLA", Threshold: 5.0, Label: "Tesla Inc."},
	{Symbol: "NVDA", Threshold: 5.0, Label: "NVIDIA Corp."},
	{Symbol: "AMZN", Threshold: 3.0, Label: "Amazon.com Inc."},
	{Symbol: "META", Threshold: 4.0, Label: "Meta Platforms Inc."},
}

// Seed populates the watchlist once at startup. Sources, in order of
// preference: the WATCHED_STOCKS environment variable (JSON), the seed
// file at path, then the built-in defaults.
func Seed(w *Watchlist, path string) error {
	log := logger.WithComponent("watchlist")

	if raw := os.Getenv("WATCHED_STOCKS"); raw != "" {
		entries, err := parseSeed([]byte(raw))
		if err != nil {
			return fmt.Errorf("parsing WATCHED_STOCKS: %w", err)
		}
		log.Info().Int("count", len(entries)).Msg("seeding watchlist from environment")
		return addAll(w, entries)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			entries, perr := parseSeed(data)
			if perr != nil {
				return fmt.Errorf("parsing %s: %w", path, perr)
			}
			log.Info().Str("path", path).Int("count", len(entries)).Msg("seeding watchlist from file")
			return addAll(w, entries)
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	log.Info().Msg("using default watchlist")
	return addAll(w, defaultSeed)
}

// SaveFile persists the current watchlist to the seed file so additions and
// removals survive a restart. In-memory alert state is deliberately not
// persisted.
func SaveFile(w *Watchlist, path string) error {
	if path == "" {
		return nil
	}

	out := make(map[string]seedEntry)
	for _, entry := range w.Snapshot() {
		out[entry.Symbol] = seedEntry{Threshold: entry.Threshold, Name: entry.Label}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// parseSeed decodes the symbol-keyed JSON format. Map iteration order is
// random in Go, so entries are sorted by symbol for a stable insertion order.
func parseSeed(data []byte) ([]models.WatchlistEntry, error) {
	var raw map[string]seedEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(raw))
	for symbol := range raw {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	entries := make([]models.WatchlistEntry, 0, len(symbols))
	for _, symbol := range symbols {
		entries = append(entries, models.WatchlistEntry{
			Symbol:    symbol,
			Threshold: raw[symbol].Threshold,
			Label:     raw[symbol].Name,
		})
	}
	return entries, nil
}

func addAll(w *Watchlist, entries []models.WatchlistEntry) error {
	for _, entry := range entries {
		if err := w.Add(entry); err != nil {
			return fmt.Errorf("seeding %s: %w", entry.Symbol, err)
		}
	}
	return nil
}
