package ratelimit

import (
	"errors"
	"sync"
	"time"
)

const (
	defaultCleanupInterval = time.Minute
	defaultMaxKeys         = 10000
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Window is a per-key sliding-window log: a key may make at most max
// requests in any trailing interval of length window.
type Window struct {
	mu              sync.Mutex
	hits            map[string][]time.Time
	window          time.Duration
	max             int
	now             func() time.Time
	cleanupInterval time.Duration
	lastCleanup     time.Time
	maxKeys         int
}

// Option configures Window.
type Option func(*Window)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(w *Window) {
		if fn != nil {
			w.now = fn
		}
	}
}

// WithMaxKeys bounds the number of tracked keys; the least recently seen are evicted first.
func WithMaxKeys(n int) Option {
	return func(w *Window) { w.maxKeys = n }
}

func NewWindow(window time.Duration, max int, opts ...Option) (*Window, error) {
	if window <= 0 {
		return nil, errors.New("rate limit window must be positive")
	}
	if max <= 0 {
		return nil, errors.New("rate limit max must be positive")
	}
	w := &Window{
		hits:            make(map[string][]time.Time),
		window:          window,
		max:             max,
		now:             time.Now,
		cleanupInterval: defaultCleanupInterval,
		maxKeys:         defaultMaxKeys,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Allow records a request for key when it fits in the window.
func (w *Window) Allow(key string) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	if now.Sub(w.lastCleanup) >= w.cleanupInterval {
		w.cleanup(now)
		w.lastCleanup = now
	}

	hits := trim(w.hits[key], now.Add(-w.window))
	if len(hits) >= w.max {
		w.hits[key] = hits
		return Decision{
			Limit:      w.max,
			RetryAfter: hits[0].Add(w.window).Sub(now),
		}
	}
	hits = append(hits, now)
	w.hits[key] = hits
	return Decision{Allowed: true, Limit: w.max, Remaining: w.max - len(hits)}
}

// Reset forgets every key.
func (w *Window) Reset() {
	w.mu.Lock()
	clear(w.hits)
	w.mu.Unlock()
}

func (w *Window) cleanup(now time.Time) {
	cutoff := now.Add(-w.window)
	for key, hits := range w.hits {
		hits = trim(hits, cutoff)
		if len(hits) == 0 {
			delete(w.hits, key)
			continue
		}
		w.hits[key] = hits
	}
	for w.maxKeys > 0 && len(w.hits) > w.maxKeys {
		oldestKey := ""
		var oldest time.Time
		for key, hits := range w.hits {
			last := hits[len(hits)-1]
			if oldestKey == "" || last.Before(oldest) {
				oldestKey, oldest = key, last
			}
		}
		delete(w.hits, oldestKey)
	}
}

// trim drops timestamps at or before cutoff. hits is sorted ascending.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
