package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limits configures the per-IP throttle. Reads (chain and star lookups) and
// writes (challenge issuance, star submission) draw from separate buckets, so
// a scraper hammering the chain endpoints cannot starve a wallet mid-flow and
// a submission flood cannot hide behind read traffic.
type Limits struct {
	ReadRPS    int
	ReadBurst  int
	WriteRPS   int
	WriteBurst int

	// SweepInterval and StaleAfter bound the per-IP state. Zero values fall
	// back to 5 and 10 minutes.
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

type ipBuckets struct {
	read     *rate.Limiter
	write    *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware enforcing Limits per client IP.
// Non-GET requests are charged against the write bucket.
func RateLimiter(l Limits) gin.HandlerFunc {
	if l.SweepInterval == 0 {
		l.SweepInterval = 5 * time.Minute
	}
	if l.StaleAfter == 0 {
		l.StaleAfter = 10 * time.Minute
	}

	var mu sync.Mutex
	buckets := make(map[string]*ipBuckets)

	// Background cleanup goroutine.
	go func() {
		for {
			time.Sleep(l.SweepInterval)
			mu.Lock()
			for ip, b := range buckets {
				if time.Since(b.lastSeen) > l.StaleAfter {
					delete(buckets, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &ipBuckets{
				read:  rate.NewLimiter(rate.Limit(l.ReadRPS), l.ReadBurst),
				write: rate.NewLimiter(rate.Limit(l.WriteRPS), l.WriteBurst),
			}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		mu.Unlock()

		limiter := b.read
		if c.Request.Method != http.MethodGet {
			limiter = b.write
		}
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
