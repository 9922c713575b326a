package fake

import (
	"context"
	"sync"
	"time"

	"camrig/internal/provision"
)

var _ provision.Clock = (*Clock)(nil)

// Clock is a settable implementation of provision.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock at a fixed start time.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var _ provision.Sleeper = (*Sleeper)(nil)

// Sleeper records sleep durations without sleeping. An optional OnSleep hook
// runs after each recorded sleep, so a test can cancel a context after N
// iterations of an unbounded gate.
type Sleeper struct {
	mu      sync.Mutex
	slept   []time.Duration
	OnSleep func(n int) error
}

func NewSleeper() *Sleeper {
	return &Sleeper{}
}

func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.slept = append(s.slept, d)
	n := len(s.slept)
	s.mu.Unlock()
	if s.OnSleep != nil {
		return s.OnSleep(n)
	}
	return nil
}

// Slept returns the recorded sleep durations.
func (s *Sleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}
