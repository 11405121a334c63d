package reconcile

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdown_FiresAfterDelay(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(func() { fired.Add(1) })

	c.Arm(time.Millisecond)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, c.Active())
}

func TestCountdown_StopPreventsFire(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(func() { fired.Add(1) })

	c.Arm(10 * time.Millisecond)
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.False(t, c.Active())
}

func TestCountdown_RearmReplacesPendingDeadline(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(func() { fired.Add(1) })

	c.Arm(time.Hour)
	c.Arm(time.Millisecond)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "the replaced deadline never fires")
}

func TestCountdown_StopOnIdleIsNoOp(t *testing.T) {
	c := NewCountdown(func() {})
	c.Stop()
	assert.False(t, c.Active())
}

func TestCountdown_ArmUntilPastDeadlineFires(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(func() { fired.Add(1) })

	c.ArmUntil(time.Now().Add(-time.Second))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
}
