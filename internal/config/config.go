package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coveragesync/internal/keys"
	"coveragesync/internal/lookup"
	"coveragesync/internal/models"
	"coveragesync/internal/retry"
	"coveragesync/internal/validation"
)

// AggressiveRate is the request rate used with --aggressive.
const AggressiveRate = 15.0

// Configuration errors. Validate wraps them in a *FatalError.
var (
	ErrMissingAPIKey      = errors.New("COVERAGE_API_KEY is required")
	ErrMissingBaseURL     = errors.New("COVERAGE_API_BASE_URL is required")
	ErrInvalidBaseURL     = errors.New("COVERAGE_API_BASE_URL is not a valid URL")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidMode        = errors.New("unknown key source mode")
	ErrInvalidSetting     = errors.New("invalid setting")
)

// FatalError is a configuration problem that must stop the process before any
// work starts.
type FatalError struct {
	Errs []error
}

func (e *FatalError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "configuration error: " + strings.Join(msgs, "; ")
}

func (e *FatalError) Unwrap() []error {
	return e.Errs
}

// Config holds all application configuration loaded from environment variables.
// CLI flags override individual fields after Load.
type Config struct {
	// Server
	ServerAddr string

	// Stores
	DatabaseURL string
	RedisURL    string // optional read-through cache for the HTTP API

	// Coverage API
	APIBaseURL string
	APIKey     string
	Region     string

	// Sync
	Mode            string // exhaustive | curated | ranges
	Rate            float64
	Aggressive      bool
	BatchSize       int
	StatusOnly      bool
	Limit           int
	RequestTimeout  time.Duration
	MaxAttempts     int
	RetryBase       time.Duration
	RetryMax        time.Duration
	RetryMultiplier float64
	ProgressEvery   int
	Schedule        string // cron spec for serve, empty disables
	KeysFile        string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
// It fails only when a numeric or boolean variable cannot be parsed.
func Load() (*Config, error) {
	p := &envParser{}
	cfg := &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		APIBaseURL:      getEnv("COVERAGE_API_BASE_URL", ""),
		APIKey:          getEnv("COVERAGE_API_KEY", ""),
		Region:          getEnv("COVERAGE_REGION", "US"),
		Mode:            getEnv("SYNC_MODE", keys.ModeRanges),
		Rate:            p.float("SYNC_RATE", 10),
		Aggressive:      p.bool("SYNC_AGGRESSIVE", false),
		BatchSize:       p.int("SYNC_BATCH_SIZE", 500),
		StatusOnly:      p.bool("SYNC_STATUS_ONLY", false),
		Limit:           p.int("SYNC_LIMIT", 0),
		RequestTimeout:  p.millis("SYNC_REQUEST_TIMEOUT_MS", 8000),
		MaxAttempts:     p.int("SYNC_MAX_ATTEMPTS", retry.DefaultMaxAttempts),
		RetryBase:       p.millis("SYNC_RETRY_BASE_MS", int(retry.DefaultBaseDelay/time.Millisecond)),
		RetryMax:        p.millis("SYNC_RETRY_MAX_MS", int(retry.DefaultMaxDelay/time.Millisecond)),
		RetryMultiplier: p.float("SYNC_RETRY_MULTIPLIER", retry.DefaultMultiplier),
		ProgressEvery:   p.int("SYNC_PROGRESS_EVERY", 50),
		Schedule:        getEnv("SYNC_SCHEDULE", ""),
		KeysFile:        getEnv("KEYS_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
	if len(p.errs) > 0 {
		return nil, &FatalError{Errs: p.errs}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParser collects parse failures so Load can report all of them at once.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSetting, key, v))
		return fallback
	}
	return n
}

func (p *envParser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidSetting, key, v))
		return fallback
	}
	return f
}

func (p *envParser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidSetting, key, v))
		return fallback
	}
	return b
}

func (p *envParser) millis(key string, fallback int) time.Duration {
	return time.Duration(p.int(key, fallback)) * time.Millisecond
}

// Validate checks everything a sync run needs. The returned error, if any, is a
// *FatalError.
func (c *Config) Validate() error {
	errs := c.validateStore()

	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.APIBaseURL == "" {
		errs = append(errs, ErrMissingBaseURL)
	} else if ok, msg := validation.ValidateURL(c.APIBaseURL); !ok {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidBaseURL, msg))
	}
	switch c.Mode {
	case keys.ModeExhaustive, keys.ModeCurated, keys.ModeRanges:
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrInvalidMode, c.Mode))
	}
	if c.Rate <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate must be positive", ErrInvalidSetting))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch size must be positive", ErrInvalidSetting))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("%w: limit must not be negative", ErrInvalidSetting))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: request timeout must be positive", ErrInvalidSetting))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidSetting))
	}
	if c.RetryBase < 0 || c.RetryMax < 0 || c.RetryMultiplier < 1 {
		errs = append(errs, fmt.Errorf("%w: retry delays must be non-negative and the multiplier at least 1", ErrInvalidSetting))
	}

	if len(errs) > 0 {
		return &FatalError{Errs: errs}
	}
	return nil
}

// ValidateServe checks what the HTTP server needs. Scheduled runs additionally
// need everything Validate checks.
func (c *Config) ValidateServe() error {
	if c.Schedule != "" {
		return c.Validate()
	}
	if errs := c.validateStore(); len(errs) > 0 {
		return &FatalError{Errs: errs}
	}
	return nil
}

// ValidateStore checks the database settings only.
func (c *Config) ValidateStore() error {
	if errs := c.validateStore(); len(errs) > 0 {
		return &FatalError{Errs: errs}
	}
	return nil
}

func (c *Config) validateStore() []error {
	if c.DatabaseURL == "" {
		return []error{ErrMissingDatabaseURL}
	}
	return nil
}

// EffectiveRate is the configured rate, raised to AggressiveRate when aggressive.
func (c *Config) EffectiveRate() float64 {
	if c.Aggressive && c.Rate < AggressiveRate {
		return AggressiveRate
	}
	return c.Rate
}

// JobType is the ledger job type of a run with this configuration.
func (c *Config) JobType() string {
	if c.StatusOnly {
		return models.JobTypeCoverageOnly
	}
	return c.Mode
}

// RetryPolicy builds the retry policy for lookups.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.RetryBase,
		Multiplier:  c.RetryMultiplier,
		MaxDelay:    c.RetryMax,
		Jitter:      retry.DefaultJitter,
	}
}

// LookupConfig builds the coverage API client settings.
func (c *Config) LookupConfig() lookup.Config {
	return lookup.Config{
		BaseURL:    c.APIBaseURL,
		APIKey:     c.APIKey,
		Region:     c.Region,
		Timeout:    c.RequestTimeout,
		StatusOnly: c.StatusOnly,
	}
}
