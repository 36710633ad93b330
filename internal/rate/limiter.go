// Package rate provides the admission-control gate consulted before
// sensitive endpoints. The handlers key requests by bearer token when
// one is present and by client IP otherwise, so users behind a shared
// address are not throttled together once logged in.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	// Allow reports whether the request identified by key fits inside
	// limit-per-window, and how long until the window resets.
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

// MemoryLimiter counts requests in fixed windows, per key.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count    int
	resetAt  time.Time
	duration time.Duration
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window)}
}

func (m *MemoryLimiter) Allow(key string, limit int, dur time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) || w.duration != dur {
		w = &window{resetAt: now.Add(dur), duration: dur}
		m.windows[key] = w
	}

	if w.count >= limit {
		return false, time.Until(w.resetAt)
	}
	w.count++
	return true, time.Until(w.resetAt)
}
