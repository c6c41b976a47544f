package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter enforces a per-key token bucket in process memory. Each key
// gets `attempts` tokens refilled evenly over `window`. Idle keys are swept
// after they have not been seen for a full window.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*bucket
}

// NewMemoryLimiter creates a limiter allowing `attempts` requests per key per
// `window`.
func NewMemoryLimiter(attempts int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   rate.Every(window / time.Duration(attempts)),
		burst:   attempts,
		ttl:     window,
		now:     time.Now,
		entries: make(map[string]*bucket),
	}
}

// Allow reports whether the key has budget left. It never returns an error.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	b := m.entries[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = b
	}
	b.lastSeen = now

	// Sweep idle entries at most once per window to bound map growth.
	if now.Sub(m.lastSweep) > m.ttl {
		for k, v := range m.entries {
			if now.Sub(v.lastSeen) > m.ttl {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}

	return b.lim.AllowN(now, 1), nil
}
