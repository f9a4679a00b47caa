package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 100, Burst: 2})
	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("burst tokens should be immediately available")
	}
	if limiter.Allow() {
		t.Fatal("third immediate request should be throttled")
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 1})
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("second wait should fail once the context expires")
	}
}

func TestNormalizeRateLimiterConfig(t *testing.T) {
	t.Parallel()

	got := NormalizeRateLimiterConfig(RateLimiterConfig{})
	if got.RequestsPerSecond != 1 || got.Burst != 2 {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	passthrough := NormalizeRateLimiterConfig(RateLimiterConfig{RequestsPerSecond: 4, Burst: 8})
	if passthrough.RequestsPerSecond != 4 || passthrough.Burst != 8 {
		t.Fatalf("explicit config should pass through: %+v", passthrough)
	}
}

func TestRateLimiter_NilIsPermissive(t *testing.T) {
	t.Parallel()

	var limiter *RateLimiter
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
	if !limiter.Allow() {
		t.Fatal("nil limiter should allow")
	}
}
