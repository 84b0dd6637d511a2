// Package bucket implements sliding-window request counting for rate limits.
package bucket

import (
	"sync"
	"time"
)

// Result reports the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store tracks request timestamps per key. The sliding window avoids the
// burst-at-boundary problem of fixed windows.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewStore() *Store {
	return &Store{buckets: make(map[string]*slidingWindow)}
}

// Allow checks whether a request under key fits the limit and, if so, counts
// it.
func (s *Store) Allow(key string, limit int, window time.Duration) Result {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.buckets[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		s.buckets[key] = sw
	}
	sw.cleanup(now)

	if len(sw.timestamps) >= limit {
		return Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: sw.timestamps[0].Add(window),
		}
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}
}

// Prune drops idle keys. Called periodically so abandoned clients do not
// accumulate.
func (s *Store) Prune() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sw := range s.buckets {
		sw.cleanup(now)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
		}
	}
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
