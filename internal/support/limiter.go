package support

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// sweepProbability is the chance any single call also evicts expired windows.
const sweepProbability = 0.01

type window struct {
	count   int
	resetAt time.Time
}

// SessionLimiter enforces a per-session message budget over a fixed window.
// State is process-local; a restart clears it, which for a cooldown of
// minutes is an acceptable trade against shared storage on this path.
type SessionLimiter struct {
	mu       sync.Mutex
	sessions map[string]*window
	windowD  time.Duration
	maxMsgs  int

	now  func() time.Time
	rand func() float64
}

func NewSessionLimiter(windowD time.Duration, maxMsgs int) *SessionLimiter {
	return &SessionLimiter{
		sessions: make(map[string]*window),
		windowD:  windowD,
		maxMsgs:  maxMsgs,
		now:      time.Now,
		rand:     rand.Float64,
	}
}

// CheckAndConsume consumes one slot for the session if the window allows it.
// On allow it returns how many slots the session has left; on denial it
// returns the seconds until the window resets, rounded up.
func (l *SessionLimiter) CheckAndConsume(sessionID string) (allowed bool, remaining, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.rand() < sweepProbability {
		l.sweep(now)
	}

	w, ok := l.sessions[sessionID]
	if !ok || !now.Before(w.resetAt) {
		l.sessions[sessionID] = &window{count: 1, resetAt: now.Add(l.windowD)}
		return true, l.maxMsgs - 1, 0
	}
	if w.count < l.maxMsgs {
		w.count++
		return true, l.maxMsgs - w.count, 0
	}
	return false, 0, int(math.Ceil(w.resetAt.Sub(now).Seconds()))
}

// sweep drops expired windows. Caller holds the mutex.
func (l *SessionLimiter) sweep(now time.Time) {
	for id, w := range l.sessions {
		if !now.Before(w.resetAt) {
			delete(l.sessions, id)
		}
	}
}
