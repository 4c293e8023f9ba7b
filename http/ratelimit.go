package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ERATELIMITED is returned when a caller exceeds the upload rate.
const ERATELIMITED = "ERATELIMITED"

// RateLimitConfig configures per-caller token buckets.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second. Zero disables limiting.
	Rate  float64
	Burst int

	// Idle limiters are dropped after IdleTimeout, checked every CleanupInterval.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// RateLimiter throttles requests per technician, falling back to the client
// IP for anonymous callers. Photo uploads are the expensive path, so the
// limiter is only attached to upload routes.
type RateLimiter struct {
	limiters sync.Map // caller key -> *limiterEntry
	logger   *slog.Logger
	config   RateLimitConfig
	cancel   context.CancelFunc
}

// limiterEntry wraps a rate limiter with metadata for cleanup.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64 // Unix seconds
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Shutdown to stop it.
func NewRateLimiter(logger *slog.Logger, cfg RateLimitConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		logger: logger,
		config: cfg,
		cancel: cancel,
	}
	go rl.cleanup(ctx)
	return rl
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := callerKey(c)
			limiter := rl.limiter(key)

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
			if !limiter.Allow() {
				rl.logger.Warn("rate limit exceeded",
					slog.String("caller", key),
					slog.String("path", c.Path()),
					slog.String("method", c.Request().Method))

				retry := time.Duration(float64(time.Second) / rl.config.Rate)
				c.Response().Header().Set("Retry-After", strconv.Itoa(max(1, int(retry.Round(time.Second).Seconds()))))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many uploads, please slow down")
			}
			return next(c)
		}
	}
}

// limiter returns the bucket for key, creating it on first use.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now().Unix()
	if entry, ok := rl.limiters.Load(key); ok {
		e := entry.(*limiterEntry)
		e.lastAccess.Store(now)
		return e.limiter
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)}
	entry.lastAccess.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// sweep drops limiters idle since before now minus IdleTimeout.
func (rl *RateLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-rl.config.IdleTimeout).Unix()
	var removed int
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastAccess.Load() < cutoff {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		rl.logger.Debug("cleaned up idle rate limiters", slog.Int("removed", removed))
	}
	return removed
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	rl.cancel()
}

func callerKey(c echo.Context) string {
	if id := liftcheck.TechnicianIDFromContext(c.Request().Context()); id != "" {
		return fmt.Sprintf("tech:%s", id)
	}
	return fmt.Sprintf("ip:%s", c.RealIP())
}
