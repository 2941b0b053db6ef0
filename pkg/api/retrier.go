package api

import (
	"context"
	"time"

	"keyword-enricher/pkg/logger"
)

// RetryConfig controls how often and how patiently transient failures are retried
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

// DefaultRetryConfig returns 3 attempts with 1s, 2s backoff capped at 30s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// Retrier runs a call until it succeeds, fails fatally or runs out of attempts
type Retrier struct {
	config     RetryConfig
	clock      Clock
	classifier ErrorClassifier
	onRetry    func(attempt int, err error)
	log        *logger.Logger
}

// NewRetrier creates a retrier; a nil clock uses the wall clock
func NewRetrier(config RetryConfig, clock Clock) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if clock == nil {
		clock = RealClock()
	}

	return &Retrier{
		config:     config,
		clock:      clock,
		classifier: NewErrorClassifier(),
		log:        logger.GetLogger().WithField("component", "retrier"),
	}
}

// OnRetry registers a hook called before each backoff sleep
func (r *Retrier) OnRetry(fn func(attempt int, err error)) {
	r.onRetry = fn
}

// Do runs fn with retry logic. attempt starts at 1.
// The last error is returned unchanged once attempts are exhausted.
func (r *Retrier) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if r.classifier.ShouldStopProcessing(err) {
			return err
		}

		// Don't sleep after the final attempt
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.Backoff(attempt)
		r.log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("Transient API failure, retrying")
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}

		if err := r.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Backoff returns the delay after the given failed attempt (1-based)
func (r *Retrier) Backoff(attempt int) time.Duration {
	delay := float64(r.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		delay *= r.config.Multiplier
		if r.config.MaxBackoff > 0 && delay >= float64(r.config.MaxBackoff) {
			return r.config.MaxBackoff
		}
	}

	if r.config.MaxBackoff > 0 && time.Duration(delay) > r.config.MaxBackoff {
		return r.config.MaxBackoff
	}
	return time.Duration(delay)
}

// MaxAttempts returns the configured attempt ceiling
func (r *Retrier) MaxAttempts() int {
	return r.config.MaxAttempts
}
