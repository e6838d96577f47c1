package api

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces the client's own outbound requests so a misbehaving command
// loop cannot hammer the backend. A nil Throttle imposes no pacing.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle constructs a throttle allowing up to perSecond requests with
// the provided burst capacity.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a request slot is available or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
