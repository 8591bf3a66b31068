package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/brand-task-api/internal/errors"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Idle visitors are dropped
// after ten minutes.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	visitors := make(map[string]*visitor)
	var mu sync.Mutex

	getVisitor := func(ip string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		for key, v := range visitors {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(visitors, key)
			}
		}
		v, exists := visitors[ip]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(r, b)}
			visitors[ip] = v
		}
		v.lastSeen = now
		return v.limiter
	}

	return func(c *gin.Context) {
		limiter := getVisitor(c.ClientIP(), time.Now())
		if !limiter.Allow() {
			apierrors.TooManyRequests(c, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}
