package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimiterPool hands out one token bucket per caller identity.
type LimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	qps      float64
	burst    int
}

func NewLimiterPool(qps float64, burst int) *LimiterPool {
	if qps <= 0 {
		qps = 50
	}
	if burst <= 0 {
		burst = int(qps) * 2
	}
	return &LimiterPool{
		limiters: make(map[string]*rate.Limiter),
		qps:      qps,
		burst:    burst,
	}
}

func (p *LimiterPool) Get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.qps), p.burst)
		p.limiters[key] = l
	}
	return l
}

// RateLimitMiddleware throttles per caller key. Must run after auth.
func RateLimitMiddleware(pool *LimiterPool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := pool.Get(CallerID(c))
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
