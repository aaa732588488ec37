package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/config"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP. A RequestsPerMinute of
// zero disables limiting.
type RateLimiter struct {
	config  config.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter creates a rate limiter. Idle clients are evicted by a
// goroutine that runs until ctx is done.
func NewRateLimiter(ctx context.Context, cfg config.RateLimitConfig) *RateLimiter {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	rl := &RateLimiter{
		config:  cfg,
		clients: make(map[string]*client),
	}
	if cfg.CleanupInterval > 0 {
		go rl.cleanupLoop(ctx)
	}
	return rl
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		limiter := rl.limiter(c.ClientIP())
		limit := strconv.Itoa(rl.config.RequestsPerMinute)

		if !limiter.Allow() {
			retryAfter := rl.retryAfter()
			c.Header("X-RateLimit-Limit", limit)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:     "Too Many Requests",
				Message:   fmt.Sprintf("Rate limit exceeded, retry in %v", retryAfter.Round(time.Second)),
				Code:      "RATE_LIMITED",
				Timestamp: time.Now(),
				Path:      c.Request.URL.Path,
			})
			return
		}

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

func (rl *RateLimiter) limiter(id string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[id]
	if !ok {
		rps := rate.Limit(float64(rl.config.RequestsPerMinute) / 60.0)
		cl = &client{limiter: rate.NewLimiter(rps, rl.config.BurstSize)}
		rl.clients[id] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// retryAfter is the time for one token to refill.
func (rl *RateLimiter) retryAfter() time.Duration {
	return time.Duration(float64(time.Minute) / float64(rl.config.RequestsPerMinute))
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now().Add(-2 * rl.config.CleanupInterval))
		}
	}
}

func (rl *RateLimiter) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, id)
		}
	}
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"active_clients":      len(rl.clients),
		"requests_per_minute": rl.config.RequestsPerMinute,
		"burst_size":          rl.config.BurstSize,
		"cleanup_interval":    rl.config.CleanupInterval.String(),
	}
}
