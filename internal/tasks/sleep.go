package tasks

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Delays used by the captcha resolver.
const (
	CaptchaPollInterval = 2 * time.Second  // between polls of one task
	CaptchaRestartDelay = 10 * time.Second // after the solver rejects a task
)

// Sleeper suspends the caller for d. It returns ctx.Err() if ctx ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper implements [Sleeper] on a [clockwork.Clock].
type ClockSleeper struct {
	clock clockwork.Clock
}

// NewClockSleeper creates a sleeper on clock, defaulting to the real clock.
func NewClockSleeper(clock clockwork.Clock) *ClockSleeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockSleeper{clock: clock}
}

func (s *ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
