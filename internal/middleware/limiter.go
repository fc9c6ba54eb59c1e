package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Checkout and stock mutation (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General browsing / cart (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

// init starts the background cleanup routine.
func init() {
	go cleanupVisitors()
}

// getVisitor retrieves or creates a rate limiter for the given bucket key.
func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes old entries from the visitors map to prevent memory leaks.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// RateLimit throttles requests per client, with a stricter tier for
// checkout and stock mutations.
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, burst, tier := resolveRateTier(c)

		identity := "ip:" + c.ClientIP()
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			identity = "user:" + userID
		}

		// Same client, separate quotas for strict vs general actions.
		key := fmt.Sprintf("%s:%s", identity, tier)

		limiter := getVisitor(key, limit, burst)
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}

		c.Next()
	}
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(c *gin.Context) (rate.Limit, int, string) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/checkout") || strings.HasPrefix(path, "/management") {
		return limitStrict, burstStrict, "strict"
	}
	return limitGeneral, burstGeneral, "general"
}
