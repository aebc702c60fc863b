package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the storefront client engine.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server (BFF surface)
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Commerce API the engine consumes
	CommerceAPIURL string `env:"COMMERCE_API_URL" envDefault:"http://localhost:9000"`
	HTTPTimeout    int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"30"`

	// Redis (durable session identity + step drafts)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Session storage namespace and TTL in hours (default: 7 days)
	SessionNamespace string `env:"SESSION_NAMESPACE" envDefault:"storefront:session"`
	SessionTTL       int    `env:"SESSION_TTL_HOURS" envDefault:"168"`

	// Fetch cache freshness and retry policy
	CartCacheTTL     int `env:"CART_CACHE_TTL_SECONDS" envDefault:"30"`
	CheckoutCacheTTL int `env:"CHECKOUT_CACHE_TTL_SECONDS" envDefault:"30"`
	MaxRetries       int `env:"FETCH_MAX_RETRIES" envDefault:"3"`
	RetryBaseWaitMS  int `env:"FETCH_RETRY_BASE_WAIT_MS" envDefault:"1000"`

	// Tracing
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSample    float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CommerceAPIURL == "" {
		return fmt.Errorf("commerce API URL is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("fetch max retries must not be negative: %d", c.MaxRetries)
	}
	return nil
}

// SessionTTLDuration returns the session TTL as a duration.
func (c *Config) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Hour
}

// RetryBaseWait returns the first backoff delay as a duration.
func (c *Config) RetryBaseWait() time.Duration {
	return time.Duration(c.RetryBaseWaitMS) * time.Millisecond
}
