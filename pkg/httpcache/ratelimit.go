package httpcache

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// DefaultDelay is the minimum gap between two requests to the same host.
const DefaultDelay = 1100 * time.Millisecond

// RateLimiter enforces a minimum delay between requests to the same domain.
// It is safe for concurrent use from multiple goroutines.
type RateLimiter struct {
	overrides   map[string]time.Duration
	lastRequest sync.Map // map[string]time.Time
	mu          sync.Map // map[string]*sync.Mutex
	minDelay    time.Duration
}

// NewRateLimiter creates a rate limiter with the given default delay.
// Per-domain overrides are passed as host -> delay.
func NewRateLimiter(minDelay time.Duration, overrides ...map[string]time.Duration) *RateLimiter {
	r := &RateLimiter{minDelay: minDelay, overrides: map[string]time.Duration{}}
	for _, o := range overrides {
		for host, d := range o {
			r.overrides[host] = d
		}
	}
	return r
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	domain := u.Host

	muI, _ := r.mu.LoadOrStore(domain, &sync.Mutex{})
	mu, ok := muI.(*sync.Mutex)
	if !ok {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	delay := r.minDelay
	if override, ok := r.overrides[domain]; ok {
		delay = override
	}

	if lastI, ok := r.lastRequest.Load(domain); ok {
		if last, ok := lastI.(time.Time); ok {
			if elapsed := time.Since(last); elapsed < delay {
				t := time.NewTimer(delay - elapsed)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
	}

	r.lastRequest.Store(domain, time.Now())
	return nil
}
