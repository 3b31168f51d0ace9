package crawler

import (
	"context"
	"time"
)

// Limiter enforces a politeness policy between consecutive fetches.
// It is decoupled from the traversal loop so that the pacing strategy
// can change without touching correctness invariants.
type Limiter interface {
	// Wait blocks until the next fetch may proceed, or until the
	// context is cancelled.
	Wait(ctx context.Context) error
}

// FixedDelay pauses a constant interval between fetches.
// A zero or negative interval disables the pause entirely.
type FixedDelay struct {
	// Interval is the minimum time between consecutive fetches.
	Interval time.Duration
}

// Wait sleeps for the configured interval, returning early with the
// context error if the crawl is cancelled mid-pause.
func (d FixedDelay) Wait(ctx context.Context) error {
	if d.Interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
