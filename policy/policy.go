// Package policy defines the retry policy value object applied by the
// paginator, the transfer executor, and the deletion state machine.
//
// Each caller holds its own independently configured Policy value; the
// three retry surfaces (metadata fetch, byte transfer, browser deletion)
// share the mechanism but never share state.
package policy

import (
	"context"
	"time"

	"github.com/minecart-io/minecart/pace"
)

// Class classifies an attempt error for retry purposes.
type Class int

const (
	// Retryable: transient fault (network error, timeout, 5xx, element
	// fault). Retried up to MaxRetries with escalating timeout.
	Retryable Class = iota
	// Permanent: item-scoped failure (e.g. 4xx other than auth).
	// Never retried; the item fails, siblings continue.
	Permanent
	// Fatal: run-scoped failure (authentication rejected, session
	// unusable). Never retried; surfaced to abort the run.
	Fatal
)

// Classifier maps an attempt error to its Class.
// Never called with a nil error.
type Classifier func(error) Class

// Op is a single attempt. attempt is 0-based; timeout is the effective
// timeout the attempt must bound itself by.
type Op func(ctx context.Context, attempt int, timeout time.Duration) error

// Policy is an immutable retry configuration.
type Policy struct {
	// MaxRetries bounds retries; total attempts = MaxRetries + 1.
	MaxRetries int
	// Interval is the flat wait between attempts (not exponential).
	Interval time.Duration
	// BaseTimeout is the timeout for the first attempt.
	BaseTimeout time.Duration
	// TimeoutStep is added to the timeout on every subsequent attempt.
	TimeoutStep time.Duration
}

// TimeoutFor returns the effective timeout for a 0-based attempt:
// BaseTimeout + attempt*TimeoutStep. Monotonically non-decreasing.
func (p Policy) TimeoutFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BaseTimeout + time.Duration(attempt)*p.TimeoutStep
}

// Attempts returns the total attempt budget (always at least 1).
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Do runs op until it succeeds, the attempt budget is exhausted, or
// classify reports the error as non-retryable. The flat Interval elapses
// between attempts. Returns the number of attempts made and the last error
// (nil on success).
func (p Policy) Do(ctx context.Context, classify Classifier, op Op) (int, error) {
	attempts := p.Attempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := pace.Sleep(ctx, p.Interval); err != nil {
				return attempt, err
			}
		}

		lastErr = op(ctx, attempt, p.TimeoutFor(attempt))
		if lastErr == nil {
			return attempt + 1, nil
		}
		if classify(lastErr) != Retryable {
			return attempt + 1, lastErr
		}
	}

	return attempts, lastErr
}
