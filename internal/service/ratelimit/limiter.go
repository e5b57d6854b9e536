package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum spacing between consecutive operations per
// key. Callers over budget are delayed, never dropped.
type Pacer struct {
	mu     sync.Mutex
	nextAt map[string]time.Time
}

func NewPacer() *Pacer {
	return &Pacer{nextAt: make(map[string]time.Time)}
}

// Wait blocks until the key's spacing interval has elapsed since the
// previous admitted call, or until ctx is done. The slot is reserved
// before sleeping so concurrent waiters queue rather than race.
func (p *Pacer) Wait(ctx context.Context, key string, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}

	now := time.Now()

	p.mu.Lock()
	at, ok := p.nextAt[key]
	if !ok || at.Before(now) {
		at = now
	}
	p.nextAt[key] = at.Add(interval)
	p.mu.Unlock()

	delay := at.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a keyed token bucket for non-blocking admission checks.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket)} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
