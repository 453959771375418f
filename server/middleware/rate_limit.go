package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter limits write traffic per client IP.
type RateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

// NewRateLimiter creates a rate limiter allowing requestsPerMinute sustained
// requests per key with the same amount of burst.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:  requestsPerMinute,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects POST requests over the per-IP limit with 429.
// Reads pass through untouched.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodPost && !rl.Allow(c.RealIP()) {
				return c.String(http.StatusTooManyRequests, "Слишком много запросов, попробуйте позже.")
			}
			return next(c)
		}
	}
}
