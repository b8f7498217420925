package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"dipwatch/internal/logger"
	"dipwatch/internal/metrics"
	"dipwatch/internal/models"
)

// HTTPSource fetches daily bars from a chart-style quote API and derives an
// Observation from the most recent bars.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPConfig holds quote client configuration
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPSource creates a quote API client
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSource{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chartResponse mirrors the provider's chart endpoint payload. Bars with no
// trades come back as JSON nulls, hence the pointer slices.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves one month of daily bars for a symbol and derives the
// current observation from them.
func (s *HTTPSource) Fetch(ctx context.Context, symbol string) (*models.Observation, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1mo&interval=1d", s.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewFetchError(symbol, KindUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dipwatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, NewFetchError(symbol, KindUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewFetchError(symbol, KindNotFound, fmt.Errorf("symbol not known to provider"))
	case resp.StatusCode != http.StatusOK:
		return nil, NewFetchError(symbol, KindUnavailable, fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, NewFetchError(symbol, KindUnavailable, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, NewFetchError(symbol, KindMalformed, err)
	}

	if chart.Chart.Error != nil {
		log := logger.WithSymbol(symbol)
		log.Warn().
			Str("code", chart.Chart.Error.Code).
			Str("description", chart.Chart.Error.Description).
			Msg("provider error for symbol")
		return nil, NewFetchError(symbol, KindNotFound, fmt.Errorf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}

	obs, err := deriveObservation(symbol, &chart)
	if err != nil {
		return nil, NewFetchError(symbol, KindMalformed, err)
	}
	return obs, nil
}

// deriveObservation reduces the bar series to a single observation:
// last close, previous close, percent change, last volume, average volume,
// and the 20-day moving average.
func deriveObservation(symbol string, chart *chartResponse) (*models.Observation, error) {
	if len(chart.Chart.Result) == 0 {
		return nil, errors.New("empty result set")
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.New("missing quote indicators")
	}
	quote := result.Indicators.Quote[0]

	closes := make([]float64, 0, len(quote.Close))
	for _, c := range quote.Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	if len(closes) == 0 {
		return nil, errors.New("no usable close prices")
	}

	price := closes[len(closes)-1]
	previousClose := price
	if len(closes) >= 2 {
		previousClose = closes[len(closes)-2]
	}

	pctChange := 0.0
	if previousClose != 0 {
		pctChange = ((price - previousClose) / previousClose) * 100
	}

	var volume, volumeSum, volumeCount int64
	for _, v := range quote.Volume {
		if v != nil {
			volume = *v
			volumeSum += *v
			volumeCount++
		}
	}
	var avgVolume int64
	if volumeCount > 0 {
		avgVolume = volumeSum / volumeCount
	}

	movingAvg := price
	if len(closes) >= 20 {
		window := closes[len(closes)-20:]
		sum := 0.0
		for _, c := range window {
			sum += c
		}
		movingAvg = sum / 20
	}

	observedAt := time.Now().UTC()
	if len(result.Timestamp) > 0 {
		observedAt = time.Unix(result.Timestamp[len(result.Timestamp)-1], 0).UTC()
	}

	return &models.Observation{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: previousClose,
		PctChange:     pctChange,
		Volume:        volume,
		AvgVolume:     avgVolume,
		MovingAvg20:   movingAvg,
		ObservedAt:    observedAt,
	}, nil
}
