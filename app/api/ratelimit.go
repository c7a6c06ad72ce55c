package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL     = 10 * time.Minute
	limiterSweepPeriod = 5 * time.Minute
)

type clientLimiter struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu                sync.Mutex
	limiters          map[string]*clientLimiter
	requestsPerMinute int
	burst             int
	lastSweep         time.Time
}

func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters:          make(map[string]*clientLimiter),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		lastSweep:         time.Now(),
	}
}

func (l *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterSweepPeriod {
		for key, info := range l.limiters {
			if now.Sub(info.lastAccessed) > limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	info, ok := l.limiters[ip]
	if !ok {
		info = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.requestsPerMinute)), l.burst),
		}
		l.limiters[ip] = info
	}
	info.lastAccessed = now

	return info.limiter
}

// rateLimitMiddleware rejects clients exceeding requestsPerMinute. Zero or
// less disables limiting.
func rateLimitMiddleware(requestsPerMinute int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := newIPRateLimiter(requestsPerMinute, requestsPerMinute)

	return func(c *gin.Context) {
		if !limiter.getLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Rate limit exceeded, retry later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
