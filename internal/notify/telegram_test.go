package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dipwatch/internal/models"
)

func testAlert() *models.Alert {
	return &models.Alert{
		ID:       "alert-1",
		Symbol:   "AAPL",
		Label:    "Apple Inc.",
		Severity: models.SeverityDetected,
		Observation: models.Observation{
			Symbol:        "AAPL",
			Price:         95.5,
			PreviousClose: 100,
			PctChange:     -4.5,
			Volume:        150000,
			AvgVolume:     100000,
			MovingAvg20:   101,
		},
		Threshold: 3.0,
		FiredAt:   time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func newTestTelegram(t *testing.T, handler http.HandlerFunc) (*TelegramNotifier, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	n, err := NewTelegramNotifier(TelegramConfig{
		Token:   "test-token",
		ChatID:  "12345",
		APIBase: server.URL,
	})
	if err != nil {
		t.Fatalf("NewTelegramNotifier returned error: %v", err)
	}
	return n, server
}

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotReq sendMessageRequest

	n, server := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, `{"ok": true}`)
	})
	defer server.Close()

	if err := n.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotReq.ChatID != "12345" {
		t.Errorf("chat_id = %s, want 12345", gotReq.ChatID)
	}
	if gotReq.Text == "" {
		t.Error("empty message text")
	}
}

func TestTelegramSendRejected(t *testing.T) {
	n, server := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok": false, "description": "chat not found"}`)
	})
	defer server.Close()

	err := n.Send(context.Background(), testAlert())
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}

func TestTelegramSendUnavailable(t *testing.T) {
	n, server := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	err := n.Send(context.Background(), testAlert())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTelegramConfigValidation(t *testing.T) {
	if _, err := NewTelegramNotifier(TelegramConfig{ChatID: "1"}); err == nil {
		t.Error("missing token accepted")
	}
	if _, err := NewTelegramNotifier(TelegramConfig{Token: "t"}); err == nil {
		t.Error("missing chat id accepted")
	}
}

// failingNotifier always fails; used to verify fanout isolation
type failingNotifier struct{}

func (f *failingNotifier) Name() string { return "failing" }
func (f *failingNotifier) Send(ctx context.Context, a *models.Alert) error {
	return ErrUnavailable
}
func (f *failingNotifier) Close() error { return nil }

// countingNotifier records how many alerts it received
type countingNotifier struct{ sent int }

func (c *countingNotifier) Name() string                                    { return "counting" }
func (c *countingNotifier) Send(ctx context.Context, a *models.Alert) error { c.sent++; return nil }
func (c *countingNotifier) Close() error                                    { return nil }

func TestFanoutDeliversPastFailingSink(t *testing.T) {
	counting := &countingNotifier{}
	fanout := NewFanout(&failingNotifier{}, counting)

	err := fanout.Send(context.Background(), testAlert())

	if counting.sent != 1 {
		t.Errorf("healthy sink received %d alerts, want 1", counting.sent)
	}
	// The failure is still surfaced to the caller for logging
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected joined ErrUnavailable, got %v", err)
	}
}

func TestFanoutAllHealthy(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	fanout := NewFanout(a, b)

	if err := fanout.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if a.sent != 1 || b.sent != 1 {
		t.Errorf("sinks received %d and %d alerts, want 1 each", a.sent, b.sent)
	}
}
