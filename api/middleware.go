package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter holds a rate limiter and its last accessed time
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiters tracks one token bucket per client IP and expires idle
// entries in the background.
type RateLimiters struct {
	clients *sync.Map
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiters creates the per-client limiter registry.
func NewRateLimiters() *RateLimiters {
	return &RateLimiters{
		clients: &sync.Map{},
		stop:    make(chan struct{}),
	}
}

// Stop ends the background cleanup goroutine.
func (r *RateLimiters) Stop() {
	close(r.stop)
}

// Limit returns middleware enforcing rps with the given burst per client.
func (r *RateLimiters) Limit(rps, burst int) gin.HandlerFunc {
	r.once.Do(func() {
		go r.cleanupLoop()
	})

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		entry, _ := r.clients.LoadOrStore(clientIP, &clientLimiter{
			limiter:  rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), burst),
			lastSeen: time.Now(),
		})

		cl := entry.(*clientLimiter)
		cl.lastSeen = time.Now()

		if !cl.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please slow down your requests.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *RateLimiters) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			r.clients.Range(func(key, value interface{}) bool {
				cl := value.(*clientLimiter)
				if now.Sub(cl.lastSeen) > 10*time.Minute {
					r.clients.Delete(key)
				}
				return true
			})
		case <-r.stop:
			return
		}
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RequestSizeLimit caps mutating request bodies at maxBytes. Uploads run
// under the configured upload ceiling, everything else defaults to 1 MB.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
