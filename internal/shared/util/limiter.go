package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles rebuilds to a steady rate with a small burst.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket limiter.
// perSecond: tokens per second.
// burst: burst size, at least 1.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Allow reports whether one event may happen now.
func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}

// Delay reports how long the caller has to wait before one event may happen,
// without consuming a token.
func (l *Limiter) Delay() time.Duration {
	now := time.Now()
	r := l.inner.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}
