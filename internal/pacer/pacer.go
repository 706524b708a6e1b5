// Package pacer provides a rate-limited executor enforcing a minimum
// interval between successive upstream calls, replacing inline sleeps in
// stage loops so the pacing policy is testable on its own.
package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates sequential calls to an external service.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a pacer with the given minimum interval between calls. A
// non-positive interval disables pacing.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// Burst 1: the first call proceeds immediately, each subsequent call
	// waits out the interval.
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
