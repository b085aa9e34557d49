package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Every key starts full.
type Limiter struct {
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time

	mu sync.Mutex
	m  map[string]*bucket
}

// New allows burst requests per key, refilling one token every interval.
func New(burst int, interval time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	rate := 0.0
	if interval > 0 {
		rate = 1 / interval.Seconds()
	}
	return &Limiter{
		capacity:   float64(burst),
		refillRate: rate,
		now:        time.Now,
		m:          make(map[string]*bucket),
	}
}

// Allow consumes one token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
