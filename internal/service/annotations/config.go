package annotations

import (
	"time"

	domrepo "ChartMarks/internal/domain/repository"
)

const (
	// DefaultLevelsMaxAge keeps key levels for hours; they move slowly.
	DefaultLevelsMaxAge = 6 * time.Hour
	// DefaultOverlaysMaxAge is short; overlays go stale with every few bars.
	DefaultOverlaysMaxAge = 15 * time.Minute
	DefaultWaitTimeout    = 5 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
)

// Option configures a cache.
type Option func(*Config)

// Config holds cache configuration.
type Config struct {
	MaxAge       time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
	Metrics      domrepo.Metrics
	Clock        func() time.Time
}

// WithMaxAge sets the max age used by Get.
func WithMaxAge(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxAge = d
		}
	}
}

// WithWait sets the default timeout and poll interval for waiting reads.
func WithWait(timeout, poll time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.WaitTimeout = timeout
		}
		if poll > 0 {
			c.PollInterval = poll
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m domrepo.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}

func newConfig(maxAge time.Duration, opts []Option) *Config {
	cfg := &Config{
		MaxAge:       maxAge,
		WaitTimeout:  DefaultWaitTimeout,
		PollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
