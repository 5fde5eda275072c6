package providers

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the request rate against one provider's API. It wraps a
// token-bucket rate.Limiter sized from the provider's RateLimitConfig.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter refilling at config.RequestsPerMinute with
// a burst of config.BurstSize (falling back to one minute's worth of
// requests when no burst is configured).
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	burst := config.BurstSize
	if burst <= 0 {
		burst = config.RequestsPerMinute
	}
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(float64(config.RequestsPerMinute) / 60.0)
	if config.RequestsPerMinute <= 0 {
		limit = rate.Inf
	}

	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request slot is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire attempts to take a request slot without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// Available returns the current number of available request slots.
func (r *RateLimiter) Available() float64 {
	return r.limiter.Tokens()
}

// RateLimiterManager shares one limiter per provider name so every caller of
// the same provider draws from the same budget.
type RateLimiterManager struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
}

// NewRateLimiterManager creates a new rate limiter manager.
func NewRateLimiterManager() *RateLimiterManager {
	return &RateLimiterManager{
		limiters: make(map[string]*RateLimiter),
	}
}

// GetOrCreate returns the rate limiter for a provider, creating if needed.
func (m *RateLimiterManager) GetOrCreate(providerName string, config RateLimitConfig) *RateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.limiters[providerName]; exists {
		return limiter
	}

	limiter := NewRateLimiter(config)
	m.limiters[providerName] = limiter
	return limiter
}

// Get returns the rate limiter for a provider if it exists.
func (m *RateLimiterManager) Get(providerName string) (*RateLimiter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limiter, exists := m.limiters[providerName]
	return limiter, exists
}
