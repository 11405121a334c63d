// Package testutil provides deterministic time control for tests.
//
// The reveal sequencer and the turn countdown take their timers as
// injected functions; tests substitute these fakes so playback pacing
// is driven explicitly instead of by wall time.
package testutil

import (
	"sync"
	"time"
)

// ManualTimer stands in for time.After. Each After call registers a
// waiter that fires only when Fire is called, in registration order.
//
// Thread-safe: the sequencer's playback goroutine calls After while the
// test calls Fire.
type ManualTimer struct {
	mu      sync.Mutex
	waiters []chan time.Time
	delays  []time.Duration
}

// NewManualTimer creates a timer with no pending waiters.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// After registers a waiter and records the requested delay.
func (m *ManualTimer) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	m.waiters = append(m.waiters, ch)
	m.delays = append(m.delays, d)
	return ch
}

// Fire releases the oldest pending waiter. Returns false when none is
// pending.
func (m *ManualTimer) Fire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.waiters) == 0 {
		return false
	}
	ch := m.waiters[0]
	m.waiters = m.waiters[1:]
	ch <- time.Time{}
	return true
}

// Pending returns the number of unfired waiters.
func (m *ManualTimer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

// Delays returns every delay requested so far, in order.
func (m *ManualTimer) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

// ImmediateAfter is a time.After substitute whose channel has already
// fired. Playbacks using it run to completion without waiting.
func ImmediateAfter(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}
