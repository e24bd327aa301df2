// Package cache provides the freshness-window memoization shared by the price,
// listing and image caches.
//
// Entries are never evicted. A stale entry only makes the next lookup fetch
// again; it stays readable through Get so callers can fall back to it when
// the fetch fails.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock supplies the current time. Tests inject a fake to step through
// freshness windows deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Entry is a cached value and the time it was fetched.
type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store is a keyed TTL cache with at most one fetch in flight per key.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]Entry[T]
	ttl     time.Duration
	clock   Clock
	group   singleflight.Group
}

// New creates an empty Store. A nil clock means SystemClock.
func New[T any](ttl time.Duration, clock Clock) *Store[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Store[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		clock:   clock,
	}
}

// TTL returns the freshness window of the store.
func (s *Store[T]) TTL() time.Duration { return s.ttl }

// Now returns the current time of the store's clock.
func (s *Store[T]) Now() time.Time { return s.clock.Now() }

// Get returns the entry for key regardless of its age.
func (s *Store[T]) Get(key string) (Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Fresh returns the value for key if its entry is within the freshness window.
func (s *Store[T]) Fresh(key string) (T, bool) {
	e, ok := s.Get(key)
	if !ok || !e.Fresh(s.clock.Now(), s.ttl) {
		var zero T
		return zero, false
	}
	return e.Value, true
}

// Set stores value for key stamped with the current time, superseding any
// previous entry.
func (s *Store[T]) Set(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry[T]{Value: value, FetchedAt: s.clock.Now()}
}

// Touch re-stamps an existing entry with the current time.
func (s *Store[T]) Touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.FetchedAt = s.clock.Now()
		s.entries[key] = e
	}
}

// Len returns the number of entries, stale ones included.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Resolve returns the fresh value for key, or runs fetch and stores its
// result. Concurrent callers for the same key share one fetch. A failed
// fetch stores nothing and its error is returned to every waiting caller.
//
// The shared fetch does not inherit the caller's cancellation, so one caller
// going away cannot fail the others; fetch must bound itself with a timeout.
// A caller whose ctx is done stops waiting and gets ctx.Err().
func (s *Store[T]) Resolve(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := s.Fresh(key); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		// another caller may have filled the entry while we queued
		if v, ok := s.Fresh(key); ok {
			return v, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
