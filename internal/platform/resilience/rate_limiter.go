package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             2,
	}
}

func NormalizeRateLimiterConfig(cfg RateLimiterConfig) RateLimiterConfig {
	defaults := DefaultRateLimiterConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst < 1 {
		cfg.Burst = defaults.Burst
	}
	return cfg
}

// RateLimiter is a process-wide token bucket. Every worker slot that talks
// to the upstream feed draws from the same bucket, so concurrent day units
// cannot jointly exceed the aggregate request budget the way independent
// per-call sleeps would.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	cfg = NormalizeRateLimiterConfig(cfg)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Wait blocks until a token is available or the context is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming it if
// so. Used by callers that prefer failing fast over queueing.
func (l *RateLimiter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}
