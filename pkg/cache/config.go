package cache

import "time"

// Option configures a Store.
type Option func(*Config)

// Config holds store configuration.
type Config struct {
	Name     string
	Recorder Recorder
	Clock    func() time.Time
}

// WithName sets the store name used in recorder events.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Config) {
		if r != nil {
			c.Recorder = r
		}
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}
