package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tilbudsradar/backend/internal/observability"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// CORSMiddleware handles CORS for browser clients
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		// Trailing wildcard matches any origin with that prefix
		if strings.HasSuffix(allowed, "*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// RequestIDMiddleware assigns every request an id and stores it in the request context
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := observability.FromContext(c.Request.Context(), logger)

		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = log.Error()
		case status >= http.StatusBadRequest:
			evt = log.Warn()
		default:
			evt = log.Info()
		}
		evt.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// RecoveryMiddleware recovers from panics and answers 500
func RecoveryMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		observability.FromContext(c.Request.Context(), logger).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// IPRateLimiter hands out one token bucket per client IP
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with a burst of the same size
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether ip may make a request now
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	if now.Sub(l.lastSweep) > l.idle {
		for key, other := range l.visitors {
			if now.Sub(other.lastSeen) > l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	return v.limiter.AllowN(now, 1)
}

// RateLimitMiddleware rejects clients that exceed their token bucket with 429
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
