package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterMap holds one rate.Limiter per provider, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*rate.Limiter
}

// NewRateLimiterMap creates limiters from the documented per-provider rates.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[ProviderName]*rate.Limiter),
	}
	for name, c := range ProviderCapabilities() {
		if c.RequestsPerSecond > 0 {
			m.limiters[name] = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
		}
	}
	return m
}

// SetLimit overrides the rate for one provider. A non-positive rps removes
// the limit.
func (m *RateLimiterMap) SetLimit(name ProviderName, rps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rps <= 0 {
		delete(m.limiters, name)
		return
	}
	m.limiters[name] = rate.NewLimiter(rate.Limit(rps), 1)
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
