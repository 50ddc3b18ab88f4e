// Package pace enforces fixed wait durations between outbound operations.
//
// The governor is the backpressure mechanism protecting the remote server:
// every external call is sequential, and the interval between calls bounds
// the request rate. No locking is needed anywhere above it.
package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Kind names an outbound operation class with its own pacing interval.
type Kind string

const (
	// KindRequest paces collection metadata fetches (between pages).
	KindRequest Kind = "request"
	// KindDownload paces attachment byte transfers (between items).
	KindDownload Kind = "download"
	// KindDelete paces browser deletion actions (between items).
	KindDelete Kind = "delete"
)

// Intervals holds the per-kind pacing durations.
// A zero duration is a valid configuration meaning "no pacing".
type Intervals struct {
	Request  time.Duration
	Download time.Duration
	Delete   time.Duration
}

// Governor suspends the single in-flight caller between outbound operations.
// Configured once at startup; never mutated afterwards.
//
// Each kind is backed by a rate.Limiter with burst 1: the first wait of a
// kind passes immediately, every subsequent wait is spaced by the kind's
// interval. Callers are strictly sequential, never concurrent.
type Governor struct {
	limiters map[Kind]*rate.Limiter
}

// NewGovernor creates a governor from the configured intervals.
func NewGovernor(intervals Intervals) *Governor {
	return &Governor{
		limiters: map[Kind]*rate.Limiter{
			KindRequest:  newLimiter(intervals.Request),
			KindDownload: newLimiter(intervals.Download),
			KindDelete:   newLimiter(intervals.Delete),
		},
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Wait suspends the caller until the kind's interval has elapsed since the
// previous Wait of the same kind. Returns early with the context's error if
// the context is canceled while waiting.
func (g *Governor) Wait(ctx context.Context, kind Kind) error {
	limiter, ok := g.limiters[kind]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// Sleep is a context-aware sleep used for retry backoff waits, whose
// durations are retry-policy-scoped rather than governor-configured.
// A non-positive duration returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
