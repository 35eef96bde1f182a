package cozy

import (
	"context"
	"time"
)

// FrameLimiter paces a loop to a target rate. Each call to Wait sleeps for
// the remainder of the frame period minus the oversleep measured on the
// previous call.
type FrameLimiter struct {
	period    time.Duration
	oversleep time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewFrameLimiter returns a limiter for fps frames per second. A
// non-positive fps disables limiting.
func NewFrameLimiter(fps int) *FrameLimiter {
	l := &FrameLimiter{now: time.Now, sleep: sleepContext}
	if fps > 0 {
		l.period = time.Second / time.Duration(fps)
	}
	return l
}

// Period returns the target frame duration.
func (l *FrameLimiter) Period() time.Duration { return l.period }

// Oversleep returns the drift carried into the next frame.
func (l *FrameLimiter) Oversleep() time.Duration { return l.oversleep }

// Wait sleeps so that a frame that took frameTime lasts one period.
// It returns early with the context error if ctx is done.
func (l *FrameLimiter) Wait(ctx context.Context, frameTime time.Duration) error {
	if l.period == 0 {
		return nil
	}
	want := l.period - (frameTime + l.oversleep)
	if want <= 0 {
		l.oversleep = 0
		return nil
	}
	start := l.now()
	if err := l.sleep(ctx, want); err != nil {
		return err
	}
	l.oversleep = max(l.now().Sub(start)-want, 0)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
