package clock

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the animation period (25 Hz).
const DefaultInterval = 40 * time.Millisecond

// Clock is a fixed-rate animation timer. Hosts with their own frame loop call
// Fire once per scheduled slot; others call Run. Ticks never overlap.
type Clock struct {
	mu       sync.Mutex
	fireMu   sync.Mutex
	interval time.Duration
	tick     func()
	running  bool
	ticks    uint64
}

func New(interval time.Duration, tick func()) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{interval: interval, tick: tick}
}

func (c *Clock) Interval() time.Duration { return c.interval }

// TicksPerSecond is the scheduling rate a frame-loop host should use.
func (c *Clock) TicksPerSecond() int {
	tps := int(time.Second / c.interval)
	if tps < 1 {
		tps = 1
	}
	return tps
}

func (c *Clock) Start() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
}

// Stop is idempotent.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Ticks returns how many ticks have run since the clock was created.
func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Fire runs the tick function once if the clock is running and reports
// whether it did. The tick runs without c.mu held so it may Stop the clock.
func (c *Clock) Fire() bool {
	c.fireMu.Lock()
	defer c.fireMu.Unlock()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.ticks++
	c.mu.Unlock()

	if c.tick != nil {
		c.tick()
	}
	return true
}

// Run drives Fire from a ticker until ctx is done. A plain re-arm is enough;
// missed slots are dropped rather than caught up.
func (c *Clock) Run(ctx context.Context) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.Fire()
		}
	}
}
