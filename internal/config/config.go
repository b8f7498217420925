package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks fatal startup configuration errors
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration for the monitor
type Config struct {
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	// Sweep cadence and pacing
	CheckInterval  time.Duration `yaml:"check_interval"`
	InterItemDelay time.Duration `yaml:"inter_item_delay"`

	// Watchlist seed file, persisted on add/remove
	WatchlistPath string `yaml:"watchlist_path"`

	// Quote provider; MockSource swaps in the static source for local dev
	MockSource bool        `yaml:"mock_source"`
	Quote      QuoteConfig `yaml:"quote"`

	// Delivery sinks; a sink is enabled when its settings are present
	Telegram TelegramConfig `yaml:"telegram"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

// QuoteConfig holds quote provider settings
type QuoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig holds Telegram delivery settings
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// KafkaConfig holds alert-topic producer settings
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	PoolSize     int           `yaml:"pool_size"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RequiredAcks int           `yaml:"required_acks"`
	Compression  string        `yaml:"compression"`
}

// Default returns a sensible default config for local dev
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		HTTPAddr:       ":8080",
		CheckInterval:  15 * time.Minute,
		InterItemDelay: time.Second,
		WatchlistPath:  "watchlist.json",
		Quote: QuoteConfig{
			BaseURL: "https://query1.finance.yahoo.com",
			Timeout: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:        "dipwatch.alerts",
			PoolSize:     2,
			MaxRetries:   3,
			RetryBackoff: 200 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			RequiredAcks: 1,
			Compression:  "snappy",
		},
	}
}

// Load builds the config from defaults, an optional YAML file named by
// CONFIG_PATH, and environment variables, in increasing precedence.
// A .env file is honored when present.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML config file over the current values
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %v", path, err)
	}
	return nil
}

// UnmarshalYAML merges present keys over the current values. Durations are
// written as strings ("15m", "500ms") rather than nanosecond integers.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		LogLevel       string `yaml:"log_level"`
		HTTPAddr       string `yaml:"http_addr"`
		CheckInterval  string `yaml:"check_interval"`
		InterItemDelay string `yaml:"inter_item_delay"`
		WatchlistPath  string `yaml:"watchlist_path"`
		MockSource     *bool  `yaml:"mock_source"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	if raw.HTTPAddr != "" {
		c.HTTPAddr = raw.HTTPAddr
	}
	if err := setDuration(&c.CheckInterval, "check_interval", raw.CheckInterval); err != nil {
		return err
	}
	if err := setDuration(&c.InterItemDelay, "inter_item_delay", raw.InterItemDelay); err != nil {
		return err
	}
	if raw.WatchlistPath != "" {
		c.WatchlistPath = raw.WatchlistPath
	}
	if raw.MockSource != nil {
		c.MockSource = *raw.MockSource
	}

	// Nested sections decode into the existing values so absent keys keep
	// their defaults.
	nested := struct {
		Quote    *QuoteConfig    `yaml:"quote"`
		Telegram *TelegramConfig `yaml:"telegram"`
		Kafka    *KafkaConfig    `yaml:"kafka"`
	}{&c.Quote, &c.Telegram, &c.Kafka}
	return node.Decode(&nested)
}

// UnmarshalYAML merges present keys over the current values
func (q *QuoteConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.BaseURL != "" {
		q.BaseURL = raw.BaseURL
	}
	return setDuration(&q.Timeout, "quote.timeout", raw.Timeout)
}

// UnmarshalYAML merges present keys over the current values
func (k *KafkaConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		PoolSize     int      `yaml:"pool_size"`
		MaxRetries   *int     `yaml:"max_retries"`
		RetryBackoff string   `yaml:"retry_backoff"`
		WriteTimeout string   `yaml:"write_timeout"`
		RequiredAcks *int     `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if len(raw.Brokers) > 0 {
		k.Brokers = raw.Brokers
	}
	if raw.Topic != "" {
		k.Topic = raw.Topic
	}
	if raw.PoolSize > 0 {
		k.PoolSize = raw.PoolSize
	}
	if raw.MaxRetries != nil {
		k.MaxRetries = *raw.MaxRetries
	}
	if err := setDuration(&k.RetryBackoff, "kafka.retry_backoff", raw.RetryBackoff); err != nil {
		return err
	}
	if err := setDuration(&k.WriteTimeout, "kafka.write_timeout", raw.WriteTimeout); err != nil {
		return err
	}
	if raw.RequiredAcks != nil {
		k.RequiredAcks = *raw.RequiredAcks
	}
	if raw.Compression != "" {
		k.Compression = raw.Compression
	}
	return nil
}

// setDuration parses val into dst when val is non-empty
func setDuration(dst *time.Duration, key, val string) error {
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	*dst = d
	return nil
}

// applyEnv overrides settings from environment variables
func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.CheckInterval = getEnvDuration("CHECK_INTERVAL", c.CheckInterval)
	c.InterItemDelay = getEnvDuration("INTER_ITEM_DELAY", c.InterItemDelay)
	c.WatchlistPath = getEnv("WATCHLIST_PATH", c.WatchlistPath)
	c.MockSource = getEnvBool("USE_MOCK_SOURCE", c.MockSource)

	c.Quote.BaseURL = getEnv("QUOTE_BASE_URL", c.Quote.BaseURL)
	c.Quote.Timeout = getEnvDuration("QUOTE_TIMEOUT", c.Quote.Timeout)

	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", c.Telegram.ChatID)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitAndTrim(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.PoolSize = getEnvInt("KAFKA_POOL_SIZE", c.Kafka.PoolSize)
	c.Kafka.MaxRetries = getEnvInt("KAFKA_MAX_RETRIES", c.Kafka.MaxRetries)
	c.Kafka.Compression = getEnv("KAFKA_COMPRESSION", c.Kafka.Compression)
}

// Validate rejects configurations the engine cannot start with
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: http_addr is required", ErrInvalidConfig)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check_interval must be positive", ErrInvalidConfig)
	}
	if c.InterItemDelay < 0 {
		return fmt.Errorf("%w: inter_item_delay cannot be negative", ErrInvalidConfig)
	}
	if !c.MockSource && c.Quote.BaseURL == "" {
		return fmt.Errorf("%w: quote.base_url is required", ErrInvalidConfig)
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram token and chat_id must be set together", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka.topic is required when brokers are set", ErrInvalidConfig)
	}
	return nil
}

// TelegramEnabled reports whether the Telegram sink is configured
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != ""
}

// KafkaEnabled reports whether the Kafka sink is configured
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
