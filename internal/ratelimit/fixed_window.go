package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// FixedWindowLimiter limits attempts per key in a fixed time window. It is
// in-memory: the client throttles itself before the backend has to.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	counts map[string]windowCount

	now func() time.Time
}

type windowCount struct {
	slot  int64
	count int
}

// NewFixedWindowLimiter creates a limiter allowing limit attempts per window.
func NewFixedWindowLimiter(limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]windowCount),
		now:    time.Now,
	}, nil
}

// Allow returns true when the key is within quota for the current window.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	slot := l.now().UTC().UnixMilli() / l.window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()
	wc := l.counts[key]
	if wc.slot != slot {
		wc = windowCount{slot: slot}
	}
	wc.count++
	l.counts[key] = wc
	return wc.count <= l.limit
}
