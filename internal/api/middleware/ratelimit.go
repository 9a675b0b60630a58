package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 30 * time.Minute
)

// clientLimiter stores the token bucket of one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies a per-client-IP token bucket.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	logger  *zap.Logger
}

// NewRateLimiterMiddleware creates a limiter allowing rps requests per second
// with the given burst. Idle clients are forgotten until ctx is done.
func NewRateLimiterMiddleware(ctx context.Context, rps float64, burst int, logger *zap.Logger) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger.Named("ratelimit"),
	}
	go rm.cleanupClients(ctx)
	return rm
}

// getClientLimiter retrieves or creates the limiter for a client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	client, exists := rm.clients[identifier]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rm.rps, rm.burst)}
		rm.clients[identifier] = client
	}
	client.lastSeen = time.Now()
	return client.limiter
}

// Forget removes every client entry idle for longer than idle and returns how many were removed.
func (rm *RateLimiterMiddleware) Forget(idle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > idle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count := rm.Forget(limiterIdleTimeout); count > 0 {
				rm.logger.Debug("Rate limiter cleanup removed idle clients", zap.Int("count", count))
			}
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !rm.getClientLimiter(clientIP).Allow() {
			rm.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
