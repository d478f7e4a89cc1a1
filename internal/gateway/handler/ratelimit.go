package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	visitorSweepEvery = 5 * time.Minute
	visitorIdleAfter  = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP.
type visitors struct {
	rps   rate.Limit
	burst int

	mu   sync.Mutex
	byIP map[string]*visitor
}

func (v *visitors) allow(ip string, now time.Time) bool {
	v.mu.Lock()
	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	v.mu.Unlock()
	return vis.limiter.AllowN(now, 1)
}

func (v *visitors) sweep(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for ip, vis := range v.byIP {
		if now.Sub(vis.lastSeen) > visitorIdleAfter {
			delete(v.byIP, ip)
		}
	}
}

// RateLimiter returns a per-IP token-bucket middleware allowing rps steady
// requests per second with bursts of up to burst. rps <= 0 disables it.
// Idle buckets are dropped in the background.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	v := &visitors{rps: rate.Limit(rps), burst: burst, byIP: make(map[string]*visitor)}

	go func() {
		t := time.NewTicker(visitorSweepEvery)
		defer t.Stop()
		for now := range t.C {
			v.sweep(now)
		}
	}()

	return func(c *gin.Context) {
		if !v.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}
