package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dipwatch/internal/engine"
	"dipwatch/internal/models"
	"dipwatch/internal/notify"
	"dipwatch/internal/source"
	"dipwatch/internal/watchlist"
)

func newTestAPI(t *testing.T) (*API, *http.ServeMux, *source.StaticSource) {
	t.Helper()

	wl := watchlist.New()
	src := source.NewStaticSource()

	eng := engine.New(engine.Config{
		Watchlist: wl,
		Source:    src,
		Notifier:  notify.NewLogNotifier(),
	})

	api := New(Config{Engine: eng})
	mux := http.NewServeMux()
	api.Register(mux)
	return api, mux, src
}

func addSymbol(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/watchlist", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAddAndList(t *testing.T) {
	_, mux, _ := newTestAPI(t)

	w := addSymbol(t, mux, `{"symbol": "aapl", "threshold": 3.0, "label": "Apple Inc."}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.WatchlistEntry
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if created.Symbol != "AAPL" {
		t.Errorf("symbol not normalized: got %s", created.Symbol)
	}

	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Count != 1 || resp.Entries[0].Symbol != "AAPL" {
		t.Errorf("unexpected list response: %+v", resp)
	}
}

func TestAddRejectsInvalidEntry(t *testing.T) {
	_, mux, _ := newTestAPI(t)

	w := addSymbol(t, mux, `{"symbol": "MSFT", "threshold": -1, "label": "Microsoft"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	w = addSymbol(t, mux, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad JSON, got %d", w.Code)
	}
}

func TestRemove(t *testing.T) {
	_, mux, _ := newTestAPI(t)
	addSymbol(t, mux, `{"symbol": "AAPL", "threshold": 3.0, "label": "Apple Inc."}`)

	req := httptest.NewRequest(http.MethodDelete, "/watchlist/aapl", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Removing again reports not found
	req = httptest.NewRequest(http.MethodDelete, "/watchlist/AAPL", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestManualCheck(t *testing.T) {
	_, mux, src := newTestAPI(t)
	addSymbol(t, mux, `{"symbol": "AAPL", "threshold": 3.0, "label": "Apple Inc."}`)

	src.Set(models.Observation{
		Symbol:        "AAPL",
		Price:         95.5,
		PreviousClose: 100,
		PctChange:     -4.5,
		Volume:        150000,
		AvgVolume:     100000,
	})

	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp checkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ItemsChecked != 1 || resp.AlertsFired != 1 {
		t.Errorf("unexpected check response: %+v", resp)
	}
}

func TestManualCheckReportsFetchErrors(t *testing.T) {
	_, mux, src := newTestAPI(t)
	addSymbol(t, mux, `{"symbol": "AAPL", "threshold": 3.0, "label": "Apple Inc."}`)

	src.Fail("AAPL", source.NewFetchError("AAPL", source.KindUnavailable, nil))

	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp checkResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if len(resp.Errors) != 1 || resp.Errors[0].Symbol != "AAPL" {
		t.Errorf("fetch error not reported: %+v", resp)
	}
	if resp.AlertsFired != 0 {
		t.Errorf("alerts fired despite fetch failure: %+v", resp)
	}
}

func TestStatus(t *testing.T) {
	_, mux, _ := newTestAPI(t)
	addSymbol(t, mux, `{"symbol": "AAPL", "threshold": 3.0, "label": "Apple Inc."}`)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Watched != 1 || resp.EngineState != "idle" {
		t.Errorf("unexpected status: %+v", resp)
	}
}
