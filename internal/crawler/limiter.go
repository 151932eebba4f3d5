package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the politeness gate for one crawl run. It enforces a minimum
// interval between request dispatches globally across all workers, so the
// effective request rate stays bounded no matter how high the concurrency
// level is.
//
// Design decision: We build on golang.org/x/time/rate with a burst of one
// rather than tracking the last dispatch time ourselves because the token
// bucket already provides the exact blocking semantics we need, including
// context cancellation while waiting.
type Limiter struct {
	// limiter is nil when pacing is disabled.
	limiter *rate.Limiter
}

// NewLimiter creates a limiter that spaces dispatches at least interval
// apart. An interval of zero (or less) disables pacing entirely.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks the caller until the minimum interval since the previous
// dispatch has elapsed, or until the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
