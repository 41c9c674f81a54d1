// Package ratelimit implements per-(remoteAddr, verb) sliding-window
// token buckets, generalized from a single fixed (limit, interval)
// pair into a per-verb table so each inbound message verb gets its
// own budget.
package ratelimit

import (
	"sync"
	"time"
)

// Rule is the (window, max) budget for one verb.
type Rule struct {
	Window time.Duration
	Max    int
}

// DefaultRule is used for any verb with no explicit entry.
var DefaultRule = Rule{Window: 10 * time.Second, Max: 50}

// Rules are the per-verb defaults from §4.I.
var Rules = map[string]Rule{
	"hello":                    {Window: 10 * time.Second, Max: 120},
	"get_frame":                {Window: 10 * time.Second, Max: 90},
	"join_room":                {Window: 10 * time.Second, Max: 40},
	"resync":                   {Window: 10 * time.Second, Max: 30},
	"join_random":              {Window: 10 * time.Second, Max: 18},
	"join_by_id":               {Window: 10 * time.Second, Max: 18},
	"create_public_and_submit": {Window: 60 * time.Second, Max: 12},
	"submit_frame":             {Window: 60 * time.Second, Max: 10},
}

type bucketKey struct {
	addr string
	verb string
}

type bucket struct {
	count    int
	resetAt  time.Time
	lastSeen time.Time
}

// Limiter is a process-wide rate limiter keyed by (remoteAddr, verb).
type Limiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

func New() *Limiter {
	return &Limiter{buckets: make(map[bucketKey]*bucket)}
}

func ruleFor(verb string) Rule {
	if r, ok := Rules[verb]; ok {
		return r
	}
	return DefaultRule
}

// Allow reports whether the message should proceed. On rejection it
// also returns how long the caller should wait before retrying.
func (l *Limiter) Allow(addr, verb string, now time.Time) (ok bool, retryAfter time.Duration) {
	rule := ruleFor(verb)
	key := bucketKey{addr: addr, verb: verb}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(rule.Window)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if b.count >= rule.Max {
		return false, b.resetAt.Sub(now)
	}
	b.count++
	return true, 0
}

// Sweep drops buckets whose window has fully elapsed and which have
// seen no traffic since; meant to be called periodically from a
// background goroutine.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.resetAt) && now.Sub(b.lastSeen) > 0 {
			delete(l.buckets, key)
		}
	}
}

// Len reports the current number of tracked buckets (for health/metrics).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// BucketsByVerb reports the number of active buckets per verb, used by
// admin status to surface rate-limit pressure without exposing raw
// remote addresses.
func (l *Limiter) BucketsByVerb() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for key := range l.buckets {
		counts[key.verb]++
	}
	return counts
}
