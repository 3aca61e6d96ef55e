// Package ratelimit implements per-client request rate limiting with
// lazy-refill token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed           bool
	Limit             int64
	Remaining         int64
	RetryAfterSeconds float64
}

// bucket is a token bucket with lazy refill (no background goroutine).
type bucket struct {
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastFill time.Time
}

func newBucket(limit int64) *bucket {
	return &bucket{
		tokens:   float64(limit),
		max:      float64(limit),
		rate:     float64(limit) / 60.0, // per-minute limit -> per-second rate
		lastFill: time.Now(),
	}
}

// refill adds tokens based on elapsed time since last refill.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.max, b.tokens+elapsed*b.rate)
	b.lastFill = now
}

// tryConsume attempts to consume one token.
func (b *bucket) tryConsume(now time.Time) (remaining int64, allowed bool) {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return int64(b.tokens), true
	}
	return 0, false
}

// retryAfter returns seconds until one token is available.
func (b *bucket) retryAfter() float64 {
	if b.tokens >= 1 {
		return 0
	}
	return (1 - b.tokens) / b.rate
}

// Limiter holds the request bucket for a single client.
type Limiter struct {
	mu       sync.Mutex
	requests *bucket // nil if unlimited
	limit    int64
	lastUsed time.Time
}

func newLimiter(limit int64) *Limiter {
	l := &Limiter{limit: limit, lastUsed: time.Now()}
	if limit > 0 {
		l.requests = newBucket(limit)
	}
	return l
}

// Allow consumes one request token.
func (l *Limiter) Allow() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.lastUsed = now

	if l.requests == nil {
		return Result{Allowed: true}
	}

	remaining, ok := l.requests.tryConsume(now)
	if ok {
		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: remaining,
		}
	}
	return Result{
		Allowed:           false,
		Limit:             l.limit,
		Remaining:         0,
		RetryAfterSeconds: l.requests.retryAfter(),
	}
}

// Registry manages per-client Limiters keyed by client IP.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry creates a new rate limiter registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// GetOrCreate returns the limiter for a client, creating one if needed.
// If the client's limit has changed, a new limiter is created.
func (r *Registry) GetOrCreate(client string, limit int64) *Limiter {
	r.mu.RLock()
	l, ok := r.limiters[client]
	r.mu.RUnlock()
	if ok && l.limit == limit {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock.
	if l, ok := r.limiters[client]; ok && l.limit == limit {
		return l
	}
	l = newLimiter(limit)
	r.limiters[client] = l
	return l
}

// EvictStale removes limiters not used since cutoff.
func (r *Registry) EvictStale(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for k, l := range r.limiters {
		l.mu.Lock()
		stale := l.lastUsed.Before(cutoff)
		l.mu.Unlock()
		if stale {
			delete(r.limiters, k)
			evicted++
		}
	}
	return evicted
}
