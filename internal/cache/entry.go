// Package cache holds the per-source snapshot cache: a single entry with a
// fixed expiry that refreshes lazily on the first read after it goes stale.
//
// Concurrent misses on the same entry are collapsed into one upstream fetch
// (single-flight). Callers that arrive while a refresh is running wait for it
// and share its outcome, success or failure. Entries never share locks with
// each other, so a slow refresh on one source does not block any other.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc obtains a fresh value for an entry.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Lookup is the outcome of a GetOrRefresh call.
type Lookup[T any] struct {
	Value T
	// Cached is true when Value came from the entry without a fetch.
	Cached bool
	// ExpiresAt is when the returned value stops being valid.
	ExpiresAt time.Time
}

// Option configures an Entry.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. now must be safe for concurrent use.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Entry caches the most recent value for one source.
// The value and its fetch time are always set together.
type Entry[T any] struct {
	key    string
	expiry time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	populated bool

	flight singleflight.Group
}

// New creates an empty Entry identified by key whose values stay valid for expiry.
func New[T any](key string, expiry time.Duration, opts ...Option) *Entry[T] {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	return &Entry[T]{
		key:    key,
		expiry: expiry,
		now:    o.now,
	}
}

// Key returns the entry's identifier.
func (e *Entry[T]) Key() string {
	return e.key
}

// Expiry returns the fixed validity window.
func (e *Entry[T]) Expiry() time.Duration {
	return e.expiry
}

// IsValid reports whether the entry holds a value fetched less than expiry ago.
func (e *Entry[T]) IsValid() bool {
	_, _, ok := e.load()
	return ok
}

// Peek returns the stored value and its fetch time regardless of validity.
// ok is false when nothing has been stored yet.
func (e *Entry[T]) Peek() (value T, fetchedAt time.Time, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value, e.fetchedAt, e.populated
}

// GetOrRefresh returns the stored value while it is valid. Otherwise it calls
// fetch, stores the result and returns it. A failed fetch leaves the entry as
// it was and returns the error; stale values are never returned.
//
// The fetch runs detached from ctx cancellation so that one caller giving up
// does not fail the others sharing the refresh. If ctx ends first, ctx.Err()
// is returned while the refresh carries on and still populates the entry.
func (e *Entry[T]) GetOrRefresh(ctx context.Context, fetch FetchFunc[T]) (Lookup[T], error) {
	if v, expiresAt, ok := e.load(); ok {
		return Lookup[T]{Value: v, Cached: true, ExpiresAt: expiresAt}, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(e.key, func() (res any, err error) {
		// DoChan re-panics on its own goroutine, which would take the process down.
		defer func() {
			if r := recover(); r != nil {
				res, err = nil, fmt.Errorf("refresh %s panicked: %v", e.key, r)
			}
		}()

		// A refresh that finished just before this flight started already
		// produced a valid value.
		if v, expiresAt, ok := e.load(); ok {
			return Lookup[T]{Value: v, Cached: true, ExpiresAt: expiresAt}, nil
		}

		v, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		return e.store(v), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero Lookup[T]
			return zero, res.Err
		}
		return res.Val.(Lookup[T]), nil
	case <-ctx.Done():
		var zero Lookup[T]
		return zero, ctx.Err()
	}
}

func (e *Entry[T]) load() (T, time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.populated {
		var zero T
		return zero, time.Time{}, false
	}

	expiresAt := e.fetchedAt.Add(e.expiry)
	if !e.now().Before(expiresAt) {
		var zero T
		return zero, time.Time{}, false
	}
	return e.value, expiresAt, true
}

func (e *Entry[T]) store(v T) Lookup[T] {
	now := e.now()

	e.mu.Lock()
	e.value = v
	e.fetchedAt = now
	e.populated = true
	e.mu.Unlock()

	return Lookup[T]{Value: v, Cached: false, ExpiresAt: now.Add(e.expiry)}
}
