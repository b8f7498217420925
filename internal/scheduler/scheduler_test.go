package scheduler

import (
	"context"
	"testing"
	"time"

	"dipwatch/internal/engine"
	"dipwatch/internal/models"
	"dipwatch/internal/notify"
	"dipwatch/internal/source"
	"dipwatch/internal/watchlist"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	wl := watchlist.New()
	if err := wl.Add(models.WatchlistEntry{Symbol: "AAPL", Threshold: 3.0, Label: "Apple Inc."}); err != nil {
		t.Fatalf("seeding watchlist: %v", err)
	}

	src := source.NewStaticSource()
	src.Set(models.Observation{
		Symbol:        "AAPL",
		Price:         100,
		PreviousClose: 101,
		PctChange:     -1.0,
		Volume:        100000,
		AvgVolume:     100000,
	})

	return engine.New(engine.Config{
		Watchlist: wl,
		Source:    src,
		Notifier:  notify.NewLogNotifier(),
	})
}

func TestRunTriggersSweeps(t *testing.T) {
	eng := newTestEngine(t)
	s := New(eng, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s.Run(ctx)

	if stats := eng.Stats(); stats.SweepsRun == 0 {
		t.Error("scheduler never triggered a sweep")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	eng := newTestEngine(t)
	s := New(eng, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunSurvivesBusyEngine(t *testing.T) {
	eng := newTestEngine(t)
	s := New(eng, 5*time.Millisecond)

	// Hold the run guard with a manual sweep for part of the window by
	// running a second scheduler against the same engine; busy ticks on
	// either side must be skipped, never fatal.
	s2 := New(eng, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s2.Run(ctx)
		close(done)
	}()
	s.Run(ctx)
	<-done

	if stats := eng.Stats(); stats.SweepsRun == 0 {
		t.Error("no sweeps completed with competing schedulers")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(newTestEngine(t), 0)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
