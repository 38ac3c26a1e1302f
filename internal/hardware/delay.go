package hardware

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay blocks for hardware settling windows. The zero value sleeps for
// a random duration inside the requested range.
type Delay struct {
	// Sleep blocks for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// Pick chooses a duration in [lo, hi]. Defaults to PickInRange.
	Pick func(lo, hi time.Duration) time.Duration
}

// Settle blocks for a duration in [lo, hi].
func (d Delay) Settle(ctx context.Context, lo, hi time.Duration) error {
	pick := d.Pick
	if pick == nil {
		pick = PickInRange
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, pick(lo, hi))
}

// PickInRange returns a uniformly distributed duration in [lo, hi].
func PickInRange(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// SleepContext sleeps for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
