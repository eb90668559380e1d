// Package ratelimit provides per-key token buckets for the gateway. Each API
// key is allowed `limit` requests per window, with capacity refilling
// continuously rather than resetting at window boundaries.
package ratelimit

import (
	"sync"
	"time"
)

// staleAfter multiples of the window without traffic before a bucket is
// garbage-collected.
const staleAfter = 2

type bucket struct {
	tokens float64
	seen   time.Time
}

// take refills the bucket for the elapsed time and consumes one token when
// available.
func (b *bucket) take(now time.Time, limit int, window time.Duration) bool {
	elapsed := now.Sub(b.seen)
	b.seen = now

	b.tokens += float64(limit) * (float64(elapsed) / float64(window))
	if capacity := float64(limit); b.tokens > capacity {
		b.tokens = capacity
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limiter holds one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
}

// New creates a Limiter where each key earns its full limit once per window.
// A background sweep drops buckets idle for more than two windows.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		window:  window,
	}
	go l.sweep()
	return l
}

// Allow consumes one token for key, creating a full bucket on first sight.
// It returns false when the key is out of capacity.
func (l *Limiter) Allow(key string, limit int) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: float64(limit) - 1, seen: now}
		return true
	}
	return b.take(now, limit, l.window)
}

// Reset forgets the state for key; its next request starts a full bucket.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Duration(staleAfter) * l.window)
		l.mu.Lock()
		for key, b := range l.buckets {
			if b.seen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
