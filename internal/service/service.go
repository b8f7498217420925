package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dipwatch/internal/config"
	"dipwatch/internal/engine"
	"dipwatch/internal/handlers"
	"dipwatch/internal/logger"
	"dipwatch/internal/middleware"
	"dipwatch/internal/notify"
	"dipwatch/internal/scheduler"
	"dipwatch/internal/source"
	"dipwatch/internal/watchlist"
)

// Service is the lifecycle controller: it brings up the collaborators, the
// engine, the scheduler, and the command API, and tears them down in order
// on shutdown.
type Service struct {
	cfg       *config.Config
	watchlist *watchlist.Watchlist
	engine    *engine.Engine
	scheduler *scheduler.Scheduler

	notifier      *notify.Fanout
	kafkaNotifier *notify.KafkaNotifier

	httpServer *http.Server
	wg         sync.WaitGroup
}

// New constructs a Service with the given config
func New(cfg *config.Config) *Service {
	return &Service{
		cfg:       cfg,
		watchlist: watchlist.New(),
	}
}

// Run starts background goroutines and blocks until the context is
// cancelled. Startup order: delivery sinks and quote source, then the
// engine, then the scheduler, then the command API. Shutdown reverses it:
// no new sweep starts once the context is cancelled, and an in-flight sweep
// is drained before the sinks are closed.
func (s *Service) Run(ctx context.Context) error {
	log := logger.WithComponent("service")
	log.Info().Msg("service starting")

	if err := s.initNotifier(); err != nil {
		log.Error().Err(err).Msg("failed to initialize notifier")
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	if err := watchlist.Seed(s.watchlist, s.cfg.WatchlistPath); err != nil {
		log.Error().Err(err).Msg("failed to seed watchlist")
		return fmt.Errorf("failed to seed watchlist: %w", err)
	}

	s.initEngine()

	// Scheduler in background; it drains any in-flight sweep before exiting.
	s.scheduler = scheduler.New(s.engine, s.cfg.CheckInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduler.Run(ctx)
	}()

	s.initHTTPServer()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info().Str("addr", s.cfg.HTTPAddr).Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Stats reporting goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reportStats(ctx)
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return s.shutdown()
}

// initNotifier wires the configured delivery sinks into a fanout. With no
// sink configured, alerts go to the structured log.
func (s *Service) initNotifier() error {
	log := logger.WithComponent("service")

	var sinks []notify.Notifier

	if s.cfg.TelegramEnabled() {
		telegram, err := notify.NewTelegramNotifier(notify.TelegramConfig{
			Token:  s.cfg.Telegram.Token,
			ChatID: s.cfg.Telegram.ChatID,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, telegram)
		log.Info().Msg("telegram notifier enabled")
	}

	if s.cfg.KafkaEnabled() {
		kafkaNotifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:      s.cfg.Kafka.Brokers,
			Topic:        s.cfg.Kafka.Topic,
			PoolSize:     s.cfg.Kafka.PoolSize,
			MaxRetries:   s.cfg.Kafka.MaxRetries,
			RetryBackoff: s.cfg.Kafka.RetryBackoff,
			WriteTimeout: s.cfg.Kafka.WriteTimeout,
			RequiredAcks: s.cfg.Kafka.RequiredAcks,
			Compression:  s.cfg.Kafka.Compression,
		})
		if err != nil {
			return err
		}
		s.kafkaNotifier = kafkaNotifier
		sinks = append(sinks, kafkaNotifier)
		log.Info().
			Strs("brokers", s.cfg.Kafka.Brokers).
			Str("topic", s.cfg.Kafka.Topic).
			Msg("kafka notifier enabled")
	}

	if len(sinks) == 0 {
		log.Warn().Msg("no delivery sink configured, alerts will only be logged")
		sinks = append(sinks, notify.NewLogNotifier())
	}

	s.notifier = notify.NewFanout(sinks...)
	return nil
}

// initEngine builds the quote source and the monitor engine
func (s *Service) initEngine() {
	log := logger.WithComponent("service")

	var src source.Source
	if s.cfg.MockSource {
		log.Warn().Msg("using static observation source")
		src = source.NewStaticSource()
	} else {
		src = source.NewHTTPSource(source.HTTPConfig{
			BaseURL: s.cfg.Quote.BaseURL,
			Timeout: s.cfg.Quote.Timeout,
		})
	}

	s.engine = engine.New(engine.Config{
		Watchlist:      s.watchlist,
		Source:         src,
		Notifier:       s.notifier,
		InterItemDelay: s.cfg.InterItemDelay,
	})

	log.Info().
		Int("watched", s.watchlist.Len()).
		Msg("engine initialized")
}

// initHTTPServer wires the command API, health, stats, and metrics routes
func (s *Service) initHTTPServer() {
	mux := http.NewServeMux()

	api := handlers.New(handlers.Config{
		Engine:        s.engine,
		WatchlistPath: s.cfg.WatchlistPath,
	})
	api.Register(mux)

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr: s.cfg.HTTPAddr,
		Handler: middleware.Chain(
			mux,
			middleware.Recovery,
			middleware.Logging,
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// shutdown performs graceful shutdown
func (s *Service) shutdown() error {
	log := logger.WithComponent("service")
	log.Info().Msg("initiating graceful shutdown")

	// 1. Stop accepting new command calls
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Wait for the scheduler to drain any in-flight sweep
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("background tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("background task shutdown timeout - forcing exit")
	}

	// 3. Tear down delivery sinks
	log.Info().Msg("closing notifier")
	if err := s.notifier.Close(); err != nil {
		log.Error().Err(err).Msg("notifier close error")
	}

	log.Info().Msg("service stopped gracefully")
	return nil
}

// reportStats periodically logs engine statistics
func (s *Service) reportStats(ctx context.Context) {
	log := logger.WithComponent("service")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.engine.Stats()
			event := log.Info().
				Uint64("sweeps_run", stats.SweepsRun).
				Uint64("alerts_fired", stats.AlertsFired).
				Uint64("item_errors", stats.ItemErrors).
				Int("watched", s.watchlist.Len()).
				Str("engine_state", s.engine.State())

			if s.kafkaNotifier != nil {
				kafkaStats := s.kafkaNotifier.Stats()
				event = event.
					Uint64("kafka_sent", kafkaStats.AlertsSent).
					Uint64("kafka_failed", kafkaStats.AlertsFailed)
			}

			event.Msg("stats")
		}
	}
}

// healthHandler handles health check requests
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.kafkaNotifier != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.kafkaNotifier.HealthCheck(ctx); err != nil {
			http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// statsHandler returns current statistics
func (s *Service) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"engine": {
			"state": %q,
			"sweeps_run": %d,
			"alerts_fired": %d,
			"item_errors": %d
		},
		"watchlist": {
			"watched": %d
		}
	}`,
		s.engine.State(),
		stats.SweepsRun,
		stats.AlertsFired,
		stats.ItemErrors,
		s.watchlist.Len(),
	)
}
