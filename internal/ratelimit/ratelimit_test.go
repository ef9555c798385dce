package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	l := New(2, time.Minute)
	t.Cleanup(l.Stop)
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	req.True(l.Allow("a"))
	clock = clock.Add(30 * time.Second)
	req.True(l.Allow("a"))
	req.False(l.Allow("a"))
	req.True(l.Allow("b"), "keys are independent")

	// the first hit leaves the window
	clock = clock.Add(31 * time.Second)
	req.True(l.Allow("a"))
	req.False(l.Allow("a"))

	l.Forget("a")
	req.True(l.Allow("a"))
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(1, time.Second)
	l.Stop()
	l.Stop()
}
