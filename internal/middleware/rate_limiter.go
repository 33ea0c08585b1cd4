package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"adtime-landing/pkg/redis"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter holds an in-memory token bucket per client IP.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. Call Cleanup in a goroutine to evict
// idle visitors.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		r:        rate.Limit(float64(requestsPerMinute) / 60.0),
		b:        burst,
	}
}

// GetLimiter returns the rate limiter for the given IP
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Allow(_ context.Context, ip string) (bool, error) {
	return rl.GetLimiter(ip).Allow(), nil
}

// Cleanup removes visitors idle for longer than idle, every interval,
// until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now().Add(-idle))
		}
	}
}

func (rl *RateLimiter) evict(before time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if v.lastSeen.Before(before) {
			delete(rl.visitors, ip)
		}
	}
}

// Len reports the number of tracked visitors.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// RedisRateLimiter counts requests per IP in fixed windows shared by all
// server instances.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(client *redis.Client, requestsPerMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  int64(requestsPerMinute),
		window: time.Minute,
		prefix: "ratelimit:lead:",
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	count, err := rl.client.IncrWindow(ctx, rl.prefix+ip, rl.window)
	if err != nil {
		return false, err
	}
	return count <= rl.limit, nil
}

// RateLimit rejects requests over the limit with 429. When the limiter
// itself fails the request is let through.
func RateLimit(limiter Limiter, logger *zap.Logger, onReject func()) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = c.Request().RemoteAddr
			}

			allowed, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				logger.Error("Rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
				return next(c)
			}
			if !allowed {
				if onReject != nil {
					onReject()
				}
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"ok":    false,
					"error": "rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}
