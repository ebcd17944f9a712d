package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter stores the rate limiter for a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware manages per-client token buckets for a group of endpoints.
type RateLimiterMiddleware struct {
	name       string
	clients    map[string]*clientLimiter
	mu         sync.Mutex
	refillRate int // tokens per second
	bucketSize int
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. A non-positive refill rate
// disables limiting.
func NewRateLimiterMiddleware(name string, refillRate, bucketSize int) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		name:       name,
		clients:    make(map[string]*clientLimiter),
		refillRate: refillRate,
		bucketSize: bucketSize,
	}
	// Start a background goroutine to clean up old client entries
	go rm.cleanupClients()
	return rm
}

// getClientLimiter retrieves or creates the rate limiter for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	client, exists := rm.clients[identifier]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rm.refillRate), rm.bucketSize)}
		rm.clients[identifier] = client
	}
	client.lastSeen = time.Now()
	return client.limiter
}

// cleanupClients periodically removes old client entries from the map.
func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		if count := rm.evictIdle(30 * time.Minute); count > 0 {
			log.Printf("Rate limiter %s cleanup removed %d old client entries.", rm.name, count)
		}
	}
}

func (rm *RateLimiterMiddleware) evictIdle(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm.refillRate <= 0 {
			c.Next()
			return
		}

		clientKey := c.ClientIP()
		if !rm.getClientLimiter(clientKey).Allow() {
			log.Printf("Rate limit %s exceeded for client: %s on %s %s", rm.name, clientKey, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded", "kind": "rate_limited"})
			return
		}

		c.Next()
	}
}
