package server

import (
	"sync"
	"time"
)

// loginRateLimiter blocks a username/address pair after repeated
// failed logins. State is in-memory only; a restart clears it.
type loginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*loginAttempts
	maxFailures int
	window      time.Duration
	blockedFor  time.Duration
	ops         int
}

type loginAttempts struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

const limiterCleanupEvery = 64

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	return &loginRateLimiter{
		attempts:    make(map[string]*loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockedFor:  blockedFor,
	}
}

// Allow reports whether a login attempt for key may proceed.
func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(now)

	entry := l.attempts[key]
	if entry == nil {
		return true
	}
	entry.lastSeen = now
	if now.Before(entry.blockedUntil) {
		return false
	}

	if !entry.windowStart.IsZero() && now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
	entry.blockedUntil = time.Time{}
	return true
}

// RegisterFailure records one failed attempt, blocking the key once
// maxFailures is reached inside the window.
func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(now)

	entry := l.attempts[key]
	if entry == nil {
		entry = &loginAttempts{}
		l.attempts[key] = entry
	}
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = now
	}
	entry.failures++
	entry.lastSeen = now
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
}

// Reset forgets all state for key, typically after a successful login.
func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *loginRateLimiter) cleanupLocked(now time.Time) {
	l.ops++
	if l.ops%limiterCleanupEvery != 0 {
		return
	}
	stale := l.window
	if l.blockedFor > stale {
		stale = l.blockedFor
	}
	stale *= 2
	for key, entry := range l.attempts {
		if now.Sub(entry.lastSeen) > stale {
			delete(l.attempts, key)
		}
	}
}
