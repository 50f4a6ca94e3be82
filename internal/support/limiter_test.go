package support

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(maxMsgs int) (*SessionLimiter, *time.Time) {
	now := time.Date(2025, 12, 12, 10, 0, 0, 0, time.UTC)
	l := NewSessionLimiter(10*time.Minute, maxMsgs)
	l.now = func() time.Time { return now }
	l.rand = func() float64 { return 1 } // sweep off unless the test wants it
	return l, &now
}

// Exactly the (max+1)-th call in a window is the first denial; after the
// window passes the count resets to 1.
func TestLimiter_Boundary(t *testing.T) {
	l, now := newTestLimiter(20)

	for i := 0; i < 20; i++ {
		allowed, remaining, _ := l.CheckAndConsume("s1")
		assert.True(t, allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 20-(i+1), remaining, "call %d", i+1)
	}

	allowed, remaining, retryAfter := l.CheckAndConsume("s1")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Greater(t, retryAfter, 0)

	// 11 minutes after the first message the window has lapsed.
	*now = now.Add(11 * time.Minute)
	allowed, remaining, _ = l.CheckAndConsume("s1")
	assert.True(t, allowed)
	assert.Equal(t, 19, remaining)
	assert.Equal(t, 1, l.sessions["s1"].count)
}

func TestLimiter_RetryAfterRoundsUp(t *testing.T) {
	l, now := newTestLimiter(1)

	l.CheckAndConsume("s1")
	*now = now.Add(9*time.Minute + 30*time.Second + 500*time.Millisecond)

	allowed, _, retryAfter := l.CheckAndConsume("s1")
	assert.False(t, allowed)
	assert.Equal(t, 30, retryAfter)
}

func TestLimiter_SessionsIndependent(t *testing.T) {
	l, _ := newTestLimiter(1)

	allowed, _, _ := l.CheckAndConsume("s1")
	assert.True(t, allowed)
	allowed, _, _ = l.CheckAndConsume("s2")
	assert.True(t, allowed)
	allowed, _, _ = l.CheckAndConsume("s1")
	assert.False(t, allowed)
}

func TestLimiter_SweepEvictsExpired(t *testing.T) {
	l, now := newTestLimiter(20)

	l.CheckAndConsume("old")
	*now = now.Add(11 * time.Minute)

	l.rand = func() float64 { return 0 } // force the sweep
	l.CheckAndConsume("fresh")

	_, ok := l.sessions["old"]
	assert.False(t, ok)
	_, ok = l.sessions["fresh"]
	assert.True(t, ok)
}
