package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests to the same host by a fixed politeness
// interval. The first request to a host proceeds immediately.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	delay    time.Duration
}

// NewRateLimiter creates a rate limiter. A zero delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Delay returns the default politeness interval.
func (r *RateLimiter) Delay() time.Duration {
	return r.delay
}

// Wait blocks until a request to urlStr's host may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	return r.getLimiter(parsedURL.Host).Wait(ctx)
}

func (r *RateLimiter) getLimiter(domain string) *rate.Limiter {
	domain = strings.ToLower(domain)

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.limiters[domain]
	if !exists {
		limiter = newLimiter(r.delay)
		r.limiters[domain] = limiter
	}
	return limiter
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
