package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"dipwatch/internal/logger"
	"dipwatch/internal/models"
)

// Kafka notifier errors
var (
	ErrNotifierClosed  = errors.New("kafka notifier is closed")
	ErrSerializeFailed = errors.New("failed to serialize alert")
)

// KafkaConfig holds alert-topic producer configuration
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PoolSize     int
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// KafkaNotifier publishes fired alerts to a Kafka topic so downstream
// consumers (dashboards, recorders) can react to them. Writers are pooled
// and publishes retry with exponential backoff.
type KafkaNotifier struct {
	cfg     KafkaConfig
	writers []*kafka.Writer
	pool    chan *kafka.Writer
	closed  atomic.Bool

	// Stats
	alertsSent   atomic.Uint64
	alertsFailed atomic.Uint64
}

// NewKafkaNotifier creates a Kafka alert sink
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}

	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 2
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	n := &KafkaNotifier{
		cfg:     cfg,
		writers: make([]*kafka.Writer, cfg.PoolSize),
		pool:    make(chan *kafka.Writer, cfg.PoolSize),
	}

	for i := 0; i < cfg.PoolSize; i++ {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{}, // Partition by symbol
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  getCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxRetries + 1,
			Async:        false, // Sync for reliability
		}
		n.writers[i] = writer
		n.pool <- writer
	}

	return n, nil
}

// getCompression returns the kafka compression codec
func getCompression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.None
	}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

// Send publishes an alert event keyed by symbol
func (n *KafkaNotifier) Send(ctx context.Context, alert *models.Alert) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}

	data, err := json.Marshal(alert)
	if err != nil {
		n.alertsFailed.Add(1)
		return fmt.Errorf("%w: %v", ErrSerializeFailed, err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.Symbol),
		Value: data,
		Headers: []kafka.Header{
			{Key: "alert_id", Value: []byte(alert.ID)},
			{Key: "symbol", Value: []byte(alert.Symbol)},
			{Key: "severity", Value: []byte(alert.Severity)},
		},
		Time: alert.FiredAt,
	}

	// Get writer from pool with timeout
	var writer *kafka.Writer
	select {
	case writer = <-n.pool:
		defer func() { n.pool <- writer }()
	case <-ctx.Done():
		n.alertsFailed.Add(1)
		return ctx.Err()
	}

	if err := n.publishWithRetry(ctx, writer, msg); err != nil {
		n.alertsFailed.Add(1)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	n.alertsSent.Add(1)
	return nil
}

// publishWithRetry publishes a message with exponential backoff retry
func (n *KafkaNotifier) publishWithRetry(ctx context.Context, writer *kafka.Writer, msg kafka.Message) error {
	log := logger.WithComponent("kafka_notifier")
	var lastErr error
	backoff := n.cfg.RetryBackoff

	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying alert publish")

			select {
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("alert publish attempt failed")

		// Check for non-retryable errors
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	log.Error().
		Err(lastErr).
		Int("max_retries", n.cfg.MaxRetries+1).
		Msg("alert publish failed after all retries")

	return fmt.Errorf("failed after %d attempts: %w", n.cfg.MaxRetries+1, lastErr)
}

// Close closes all writers in the pool
func (n *KafkaNotifier) Close() error {
	if n.closed.Swap(true) {
		return nil // Already closed
	}

	var errs []error
	for _, writer := range n.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing writers: %v", errs)
	}
	return nil
}

// Stats returns notifier statistics
func (n *KafkaNotifier) Stats() KafkaStats {
	return KafkaStats{
		AlertsSent:   n.alertsSent.Load(),
		AlertsFailed: n.alertsFailed.Load(),
	}
}

// KafkaStats holds notifier metrics
type KafkaStats struct {
	AlertsSent   uint64
	AlertsFailed uint64
}

// HealthCheck verifies the notifier can reach a writer
func (n *KafkaNotifier) HealthCheck(ctx context.Context) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}

	var writer *kafka.Writer
	select {
	case writer = <-n.pool:
		defer func() { n.pool <- writer }()
	case <-ctx.Done():
		return ctx.Err()
	}

	_ = writer.Stats()
	return nil
}
