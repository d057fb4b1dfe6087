package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/globe-observations/pkg/response"
)

// RateLimiter is a sliding-window limiter keyed by client IP
type RateLimiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	limit   int           // requests allowed per window
	window  time.Duration // sliding window length
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewRateLimiter creates a rate limiter and starts its sweeper; call Stop
// to release it
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the sweeper goroutine
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stop) })
}

// recent drops hits older than the window; caller holds mu
func (rl *RateLimiter) recent(hits []time.Time, now time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if now.Sub(t) < rl.window {
			kept = append(kept, t)
		}
	}
	return kept
}

// sweep forgets idle clients once per window
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		now := rl.now()
		for ip, hits := range rl.hits {
			if kept := rl.recent(hits, now); len(kept) == 0 {
				delete(rl.hits, ip)
			} else {
				rl.hits[ip] = kept
			}
		}
		rl.mu.Unlock()
	}
}

// Allow records a request from ip and reports whether it is within the limit
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := rl.recent(rl.hits[ip], now)
	if len(hits) >= rl.limit {
		rl.hits[ip] = hits
		return false
	}
	rl.hits[ip] = append(hits, now)
	return true
}

// RateLimit middleware limits requests per IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			return
		}
		c.Next()
	}
}
