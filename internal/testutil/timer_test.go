package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTimer_FiresInOrder(t *testing.T) {
	m := NewManualTimer()

	first := m.After(time.Second)
	second := m.After(2 * time.Second)
	assert.Equal(t, 2, m.Pending())

	require.True(t, m.Fire())
	select {
	case <-first:
	default:
		t.Fatal("first waiter should have fired")
	}
	select {
	case <-second:
		t.Fatal("second waiter fired early")
	default:
	}

	require.True(t, m.Fire())
	assert.False(t, m.Fire(), "no waiters left")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, m.Delays())
}

func TestImmediateAfter(t *testing.T) {
	select {
	case <-ImmediateAfter(time.Hour):
	default:
		t.Fatal("ImmediateAfter must be ready at once")
	}
}
