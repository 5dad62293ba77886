// Package ratelimit throttles outbound transport sends per spec.md
// §4.6: a token bucket for the steady-state limit, plus an exponential
// backoff escalator layered on top for sustained bursts. There is no
// teacher precedent for either piece; the bucket is golang.org/x/time/rate
// (a dependency supplemented from goadesign-goa-ai's go.mod), and the
// escalator is a small spec-literal state machine.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBurstSize  = 5
	defaultRateLimit  = 30 // sends per minute
	escalatorMaxLevel = 5
	escalatorBase     = 1 * time.Second
	escalatorMax      = 16 * time.Second
	defaultCooldown   = 60 * time.Second
)

// Config tunes the limiter. Zero values fall back to spec defaults.
type Config struct {
	BurstSize int
	// RateLimit is sends per minute.
	RateLimit      int
	CooldownPeriod time.Duration
}

// Limiter combines a token bucket with an exponential backoff escalator.
// Every Acquire call consumes one token, sleeping until one refills if
// the bucket is empty; additionally, once the bucket has been observed
// exhausted, each subsequent Acquire raises an escalation level that
// adds extra delay, resetting after CooldownPeriod of quiescence.
type Limiter struct {
	bucket   *rate.Limiter
	cooldown time.Duration

	mu          sync.Mutex
	level       int
	lastExhaust time.Time
}

// New constructs a Limiter from cfg, applying spec defaults for any zero fields.
func New(cfg Config) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = defaultBurstSize
	}
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = defaultRateLimit
	}
	cooldown := cfg.CooldownPeriod
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		cooldown: cooldown,
	}
}

// Acquire blocks until a send is permitted: it waits for the token
// bucket to yield a token, then applies any escalated backoff delay.
// It respects ctx cancellation throughout.
func (l *Limiter) Acquire(ctx context.Context) error {
	exhausted := l.bucket.Tokens() < 1
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	delay := l.onAcquire(exhausted)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// onAcquire updates escalation state for one acquired token and returns
// the additional delay to apply, if any.
func (l *Limiter) onAcquire(exhausted bool) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if !l.lastExhaust.IsZero() && now.Sub(l.lastExhaust) >= l.cooldown {
		l.level = 0
	}

	if !exhausted {
		return 0
	}

	l.lastExhaust = now
	if l.level < escalatorMaxLevel {
		l.level++
	}
	return backoffFor(l.level)
}

// backoffFor returns min(base*2^(n-1), max) for escalation level n ∈ [1, escalatorMaxLevel].
func backoffFor(level int) time.Duration {
	if level <= 0 {
		return 0
	}
	d := escalatorBase << (level - 1)
	if d > escalatorMax {
		return escalatorMax
	}
	return d
}

// Level reports the current escalation level, for observability.
func (l *Limiter) Level() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}
