// File: internal/middleware/ratelimit.go
package middleware

import (
	"strconv"
	"sync"
	"time"

	"prompthub_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultCleanupInterval is how often idle client buckets are pruned.
const DefaultCleanupInterval = 5 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	perMinute       int
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration
	logger          *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter allows perMinute requests per minute per IP, with a burst of
// the same size. perMinute <= 0 disables limiting. Call Stop to end the
// background pruning.
func NewRateLimiter(perMinute int, cleanupInterval time.Duration, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		perMinute:       perMinute,
		rate:            rate.Limit(float64(perMinute) / 60.0),
		burst:           perMinute,
		cleanupInterval: cleanupInterval,
		logger:          logger.Named("RateLimiter"),
		clients:         make(map[string]*clientLimiter),
		stopCh:          make(chan struct{}),
	}
	if perMinute > 0 && cleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Stop ends the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.burst <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !rl.limiterFor(ip).Allow() {
			rl.logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", c.FullPath()))
			c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			common.RespondWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// ClientCount reports how many client buckets are tracked.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

// retryAfterSeconds estimates the wait until one token is refilled.
func (rl *RateLimiter) retryAfterSeconds() int {
	secs := (60 + rl.perMinute - 1) / rl.perMinute
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.cleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, key)
		}
	}
}
