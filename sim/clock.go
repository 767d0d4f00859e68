package sim

import (
	"context"
	"sync"
	"time"
)

// Clock drives the simulated time and calls its listeners on every step.
type Clock struct {
	mu        sync.RWMutex
	start     time.Time
	step      time.Duration
	realtime  bool
	now       time.Time
	listeners []func(time.Time) error
}

// NewClock returns a clock starting at start. A realtime clock steps once per
// step of wall time; otherwise it steps as fast as listeners return.
func NewClock(start time.Time, step time.Duration, realtime bool) *Clock {
	if step <= 0 {
		panic("clock step must be positive")
	}
	return &Clock{start: start, step: step, realtime: realtime, now: start}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// AddListener registers a callback invoked on every step. It must be called before Run.
func (c *Clock) AddListener(fn func(time.Time) error) {
	c.listeners = append(c.listeners, fn)
}

// Run steps the clock for the provided simulated duration, or until ctx is
// done or a listener fails. A zero duration runs until ctx is done.
func (c *Clock) Run(ctx context.Context, duration time.Duration) error {
	var tick <-chan time.Time
	if c.realtime {
		ticker := time.NewTicker(c.step)
		defer ticker.Stop()
		tick = ticker.C
	}
	for elapsed := time.Duration(0); duration == 0 || elapsed < duration; elapsed += c.step {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		c.now = c.now.Add(c.step)
		now := c.now
		c.mu.Unlock()

		for _, fn := range c.listeners {
			if err := fn(now); err != nil {
				return err
			}
		}
	}
	return nil
}
