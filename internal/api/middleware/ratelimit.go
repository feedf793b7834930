package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"golang.org/x/time/rate"
)

// Rate limiter defaults
const (
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 20
	DefaultIdleTTL           = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages rate limiters per client IP
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
		now:      time.Now,
	}
}

// GetLimiter returns the rate limiter for the given IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = i.now()

	return entry.limiter
}

// CleanupOldEntries removes limiters not used within idle
func (i *IPRateLimiter) CleanupOldEntries(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-idle)
	removed := 0
	for ip, entry := range i.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// StartCleanup evicts idle limiters until ctx is done
func (i *IPRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.CleanupOldEntries(DefaultIdleTTL)
			}
		}
	}()
}

// RateLimitConfig configures the rate limiting middleware
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Security          *logger.SecurityLogger
}

// RateLimiter returns rate limiting middleware backed by limiter
func RateLimiter(limiter *IPRateLimiter, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			l := limiter.GetLimiter(ip)

			if !l.Allow() {
				if security != nil {
					security.RateLimitExceeded(ip, c.Path())
				}

				retryAfter := 1
				if limiter.rate > 0 {
					retryAfter = int(1/float64(limiter.rate)) + 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(response.HTTPStatus(apperrors.CodeRateLimited), response.ErrorResponse{
					Success: false,
					Error:   "rate limit exceeded",
					Code:    apperrors.CodeRateLimited,
				})
			}

			return next(c)
		}
	}
}

// RateLimiterWithConfig returns rate limiting middleware with its own limiter.
// Zero values fall back to the defaults.
func RateLimiterWithConfig(cfg RateLimitConfig) echo.MiddlewareFunc {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	return RateLimiter(NewIPRateLimiter(rate.Limit(rps), burst), cfg.Security)
}
