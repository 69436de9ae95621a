// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

// RateLimiter throttles per client IP and blocks an IP for a while once it bursts past its limit.
type RateLimiter struct {
	ips            map[string]*rate.Limiter
	blockedIPs     map[string]time.Time
	mu             sync.Mutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
	logger         *zap.Logger
}

func NewRateLimiter(logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		ips:           make(map[string]*rate.Limiter),
		blockedIPs:    make(map[string]time.Time),
		defaultLimit:  rate.Every(100 * time.Millisecond),
		defaultBurst:  20,
		blockDuration: 5 * time.Minute,
		endpointLimits: map[string]endpointLimit{
			// Login is the brute-force target.
			"/api/admin/login":          {limit: rate.Every(2 * time.Second), burst: 5},
			"/api/admin/login/firebase": {limit: rate.Every(2 * time.Second), burst: 5},
			// Exports are heavy.
			"/api/admin/leads/export":       {limit: rate.Every(time.Second), burst: 3},
			"/api/admin/agents/export":      {limit: rate.Every(time.Second), burst: 3},
			"/api/admin/withdrawals/export": {limit: rate.Every(time.Second), burst: 3},
		},
		now:    time.Now,
		logger: logger,
	}
}

// SetEndpointLimit overrides the limit of one route path.
func (r *RateLimiter) SetEndpointLimit(path string, limit rate.Limit, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpointLimits[path] = endpointLimit{limit: limit, burst: burst}
}

// Cleanup forgets blocks that have expired; main runs it periodically.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for ip, blockUntil := range r.blockedIPs {
		if now.After(blockUntil) {
			delete(r.blockedIPs, ip)
			delete(r.ips, ip)
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			path := c.Path()
			key := ip + "|" + path

			r.mu.Lock()
			if blockUntil, blocked := r.blockedIPs[key]; blocked {
				if r.now().Before(blockUntil) {
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil)
				}
				delete(r.blockedIPs, key)
				delete(r.ips, key)
			}

			limit, burst := r.defaultLimit, r.defaultBurst
			if l, ok := r.endpointLimits[path]; ok {
				limit, burst = l.limit, l.burst
			}
			limiter, ok := r.ips[key]
			if !ok {
				limiter = rate.NewLimiter(limit, burst)
				r.ips[key] = limiter
			}

			if !limiter.AllowN(r.now(), 1) {
				blockUntil := r.now().Add(r.blockDuration)
				r.blockedIPs[key] = blockUntil
				r.mu.Unlock()
				r.logger.Warn("rate limit exceeded, blocking client", zap.String("ip", ip), zap.String("path", path))
				return tooManyRequests(c, blockUntil)
			}
			r.mu.Unlock()

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter time.Time) error {
	c.Response().Header().Set("Retry-After", retryAfter.UTC().Format(http.TimeFormat))
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests",
		Data:    map[string]string{"retryAfter": retryAfter.UTC().Format(time.RFC3339)},
	})
}
