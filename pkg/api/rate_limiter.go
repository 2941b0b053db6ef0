package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"keyword-enricher/pkg/logger"
)

// Clock abstracts time so pacing and backoff can be tested without sleeping
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimitConfig bounds how fast one run may call the provider
type RateLimitConfig struct {
	MinDelay          time.Duration `mapstructure:"min_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// DefaultRateLimitConfig returns one call per second, sixty per minute
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MinDelay:          time.Second,
		RequestsPerMinute: 60,
	}
}

const rateWindow = time.Minute

// RateLimiter paces provider calls for a single run. It enforces a minimum
// gap between consecutive calls and a ceiling on calls per rolling minute.
type RateLimiter struct {
	mu      sync.Mutex
	clock   Clock
	spacing *rate.Limiter
	ceiling int
	window  []time.Time
	waited  time.Duration
	log     *logger.Logger
}

// NewRateLimiter creates a limiter on the given clock (nil means wall clock)
func NewRateLimiter(cfg RateLimitConfig, clock Clock) *RateLimiter {
	if clock == nil {
		clock = RealClock()
	}

	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}

	return &RateLimiter{
		clock:   clock,
		spacing: rate.NewLimiter(limit, 1),
		ceiling: cfg.RequestsPerMinute,
		log:     logger.GetLogger().WithField("component", "rate_limiter"),
	}
}

// Wait blocks until the next call is allowed and records it
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if err := rl.waitForWindow(ctx); err != nil {
		return err
	}

	now := rl.clock.Now()
	reservation := rl.spacing.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		if err := rl.clock.Sleep(ctx, delay); err != nil {
			reservation.CancelAt(rl.clock.Now())
			return err
		}
		rl.waited += delay
	}

	rl.window = append(rl.window, rl.clock.Now())
	return nil
}

// waitForWindow sleeps until the rolling window has room (must hold mu)
func (rl *RateLimiter) waitForWindow(ctx context.Context) error {
	if rl.ceiling <= 0 {
		return nil
	}

	for {
		now := rl.clock.Now()
		rl.evict(now)
		if len(rl.window) < rl.ceiling {
			return nil
		}

		delay := rl.window[0].Add(rateWindow).Sub(now)
		rl.log.WithFields(map[string]interface{}{
			"calls_in_window": len(rl.window),
			"ceiling":         rl.ceiling,
			"delay":           delay.String(),
		}).Debug("Per-minute ceiling reached, waiting")

		if err := rl.clock.Sleep(ctx, delay); err != nil {
			return err
		}
		rl.waited += delay
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	cutoff := now.Add(-rateWindow)
	drop := 0
	for drop < len(rl.window) && !rl.window[drop].After(cutoff) {
		drop++
	}
	rl.window = rl.window[drop:]
}

// Waited returns the total time spent blocked so far
func (rl *RateLimiter) Waited() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.waited
}

// CallsInWindow returns how many calls happened in the last minute
func (rl *RateLimiter) CallsInWindow() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.evict(rl.clock.Now())
	return len(rl.window)
}
