// Package ratelimit paces outbound requests to the parliament site so the
// pipeline never hammers it, no matter how many stages share the connection.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound requests. A zero or negative delay disables
// pacing entirely, which tests rely on.
type Limiter struct {
	inner *rate.Limiter
}

// New builds a limiter allowing one request per delay with a burst of one.
func New(delay time.Duration) *Limiter {
	if delay <= 0 {
		return &Limiter{}
	}
	return &Limiter{inner: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next request may proceed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.inner == nil {
		return ctx.Err()
	}
	return l.inner.Wait(ctx)
}
