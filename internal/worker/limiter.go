package worker

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound API calls across all pool workers. It is an
// explicit value injected into each Pool rather than package state, so two
// pipelines in one process do not cross-throttle.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond sustained calls.
// With burst 1 dispatches are evenly spaced, so no sliding one-second window
// ever sees more than requestsPerSecond calls.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
