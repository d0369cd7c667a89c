package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different upstreams we call out to
type API string

const (
	// APITradingView represents the TradingView symbol pages
	APITradingView API = "tradingview"
	// APIBybit represents the Bybit V5 market API
	APIBybit API = "bybit"
)

// Limiter paces outbound calls per upstream. It never limits inbound callers;
// it only spaces out the refresh fetches that reach an upstream.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter allowing perSecond requests per second to each of the
// given APIs, with a burst of one. A non-positive rate disables limiting.
func New(perSecond float64, apis ...API) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(apis)),
	}

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	for _, api := range apis {
		l.limiters[api] = rate.NewLimiter(limit, 1)
	}
	return l
}

// Unlimited returns a Limiter with no configured APIs; every call is allowed.
func Unlimited() *Limiter {
	return New(0)
}

// Set replaces the limit for a single API.
func (l *Limiter) Set(api API, perSecond float64, burst int) {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	l.mu.Lock()
	l.limiters[api] = rate.NewLimiter(limit, burst)
	l.mu.Unlock()
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	if l == nil {
		return true
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}
