// Package ratelimit implements a fixed-window request counter keyed by an
// arbitrary string (typically a client IP). Counts live in process memory
// only: in a multi-instance deployment each instance enforces its own
// limit. That is a documented property of this design, not a defect.
package ratelimit

import (
	"sync"
	"time"
)

// cleanupInterval is how often the background sweep evicts expired windows.
// Passive expiry already makes stale entries harmless; the sweep is memory
// hygiene only.
const cleanupInterval = 60 * time.Second

type window struct {
	count     int
	expiresAt time.Time
}

// Limiter counts hits per key inside a fixed window. The window deadline is
// set by the first hit and fully resets once it passes, so a burst of up to
// twice the limit can straddle a window boundary. That approximation is
// accepted in exchange for constant memory per key.
type Limiter struct {
	mu      sync.Mutex
	hits    map[string]*window
	windowD time.Duration
	max     int

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a limiter allowing max hits per key within windowD and starts
// the background cleanup sweep. Callers own the limiter's lifecycle and
// must call Stop to release the sweep goroutine.
func New(windowD time.Duration, max int) *Limiter {
	l := &Limiter{
		hits:    make(map[string]*window),
		windowD: windowD,
		max:     max,
		stop:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Check records a hit for the key and reports whether it is allowed.
// Check-and-increment is a single critical section, so concurrent requests
// for one key can never both pass when only one slot remains. A denied hit
// does not increment the count.
func (l *Limiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.hits[key]

	if !ok || now.After(w.expiresAt) {
		l.hits[key] = &window{count: 1, expiresAt: now.Add(l.windowD)}
		return true
	}

	if w.count >= l.max {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many hits the key has left in its current window,
// never below zero. A key with no record has the full limit remaining.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.hits[key]
	if !ok || time.Now().After(w.expiresAt) {
		return l.max
	}

	remaining := l.max - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetTime returns when the key's current window expires. For a key with
// no record it returns now plus one full window.
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.hits[key]
	if !ok || now.After(w.expiresAt) {
		return now.Add(l.windowD)
	}
	return w.expiresAt
}

// Reset clears the key's record. Exposed as a policy hook so an integrator
// can forgive a key after successful authentication; nothing in this
// package calls it automatically.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}

// Limit returns the configured maximum hits per window
func (l *Limiter) Limit() int {
	return l.max
}

// Stop terminates the background cleanup sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup evicts records whose window has expired, bounding the map to
// active keys.
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, w := range l.hits {
		if now.After(w.expiresAt) {
			delete(l.hits, key)
		}
	}
}
