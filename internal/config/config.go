package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

// Config represents runtime configuration derived from environment variables.
// It is read once at startup and immutable afterwards.
type Config struct {
	Subreddit   string
	Thresholds  models.ThresholdTable
	Webhook     WebhookConfig
	Perspective PerspectiveConfig
	Reddit      RedditConfig
	Feed        FeedConfig
	Server      ServerConfig
	Logging     LoggingConfig
}

// WebhookConfig holds Discord webhook delivery parameters.
type WebhookConfig struct {
	// URL of the webhook. Empty disables the Discord mirror.
	URL             string
	MinEmitInterval time.Duration
	DeliveryTimeout time.Duration
}

// PerspectiveConfig holds Perspective API client parameters.
type PerspectiveConfig struct {
	APIKey            string
	Endpoint          string
	RequestsPerSecond float64
}

// RedditConfig holds credentials for the moderator report account.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Enabled reports whether moderator reporting is configured.
func (c RedditConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// FeedConfig holds comment feed polling parameters.
type FeedConfig struct {
	PollInterval time.Duration
	UserAgent    string
}

// ServerConfig holds ops HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const (
	defaultPort            = "9090"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "text"

	defaultPerspectiveEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"
	defaultRequestsPerSecond   = 1.0

	defaultMinEmitInterval = 0 * time.Second
	defaultDeliveryTimeout = 5 * time.Second

	defaultPollInterval = 5 * time.Second

	version = "0.1.0"
)

// defaultThresholds is the escalation table used when no THRESHOLD_* override
// is present.
var defaultThresholds = models.ThresholdTable{
	models.AttributeToxicity:       0.90,
	models.AttributeSevereToxicity: 0.80,
	models.AttributeIdentityAttack: 0.85,
	models.AttributeInsult:         0.90,
	models.AttributeThreat:         0.80,
}

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	subreddit := os.Getenv("SUBREDDIT")
	if subreddit == "" {
		return Config{}, fmt.Errorf("SUBREDDIT must be set")
	}

	apiKey := os.Getenv("PERSPECTIVE_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("PERSPECTIVE_API_KEY must be set")
	}

	cfg := Config{
		Subreddit: subreddit,
		Webhook: WebhookConfig{
			URL:             os.Getenv("WEBHOOK_URL"),
			MinEmitInterval: defaultMinEmitInterval,
			DeliveryTimeout: defaultDeliveryTimeout,
		},
		Perspective: PerspectiveConfig{
			APIKey:            apiKey,
			Endpoint:          getEnv("PERSPECTIVE_ENDPOINT", defaultPerspectiveEndpoint),
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Reddit: RedditConfig{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
		},
		Feed: FeedConfig{
			PollInterval: defaultPollInterval,
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
	}

	cfg.Reddit.UserAgent = fmt.Sprintf("web:mod.%s.Perspective:v%s (by /u/%s)", subreddit, version, cfg.Reddit.Username)
	cfg.Feed.UserAgent = fmt.Sprintf("web:mod.%s.Perspective:v%s", subreddit, version)

	if v := os.Getenv("WEBHOOK_MIN_EMIT_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WEBHOOK_MIN_EMIT_INTERVAL_SECONDS: %w", err)
		}
		cfg.Webhook.MinEmitInterval = d
	}

	if v := os.Getenv("WEBHOOK_DELIVERY_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WEBHOOK_DELIVERY_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Webhook.DeliveryTimeout = d
	}

	if v := os.Getenv("PERSPECTIVE_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return Config{}, fmt.Errorf("invalid PERSPECTIVE_REQUESTS_PER_SECOND: must be a positive number")
		}
		cfg.Perspective.RequestsPerSecond = rps
	}

	if v := os.Getenv("FEED_POLL_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEED_POLL_INTERVAL_SECONDS: %w", err)
		}
		cfg.Feed.PollInterval = d
	}

	thresholds, err := loadThresholds()
	if err != nil {
		return Config{}, err
	}
	cfg.Thresholds = thresholds

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

// loadThresholds builds the escalation table, validating every override
// against the closed attribute set.
func loadThresholds() (models.ThresholdTable, error) {
	thresholds := make(models.ThresholdTable, len(defaultThresholds))
	for attr, value := range defaultThresholds {
		thresholds[attr] = value
	}

	for _, attr := range models.AllAttributes() {
		key := "THRESHOLD_" + string(attr)
		v := os.Getenv(key)
		if v == "" {
			continue
		}

		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: must be a number", key)
		}
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("invalid %s: must be in [0, 1]", key)
		}
		thresholds[attr] = threshold
	}

	return thresholds, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
