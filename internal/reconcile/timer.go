package reconcile

import (
	"sync"
	"time"
)

// Countdown runs the auto-submit deadline for the current turn. Arming
// replaces any pending deadline; stopping guarantees the callback will
// not fire for a deadline armed before the stop, even if its timer has
// already expired and the callback is racing the stop.
type Countdown struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	fire  func()
}

// NewCountdown creates a countdown that invokes fire when an armed
// deadline elapses.
func NewCountdown(fire func()) *Countdown {
	return &Countdown{fire: fire}
}

// Arm schedules the callback after d, replacing any pending deadline.
// A non-positive d fires on a timer goroutine almost immediately rather
// than synchronously, so Arm never reenters the caller.
func (c *Countdown) Arm(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(d, func() {
		c.fireIfCurrent(gen)
	})
}

// ArmUntil schedules the callback for a wall-clock deadline. A deadline
// already in the past fires almost immediately.
func (c *Countdown) ArmUntil(deadline time.Time) {
	c.Arm(time.Until(deadline))
}

// Stop cancels any pending deadline. Safe to call when idle.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

// Active reports whether a deadline is pending.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fireIfCurrent runs the callback only if the generation that armed
// this timer is still the live one. The generation check closes the
// window where the timer expired concurrently with a Stop or re-Arm.
func (c *Countdown) fireIfCurrent(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if c.fire != nil {
		c.fire()
	}
}
