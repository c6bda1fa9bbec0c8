package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/faizvk/ecommerce-app/internal/config"
)

// NewLimiter builds the fixed-window limiter.  Counters live in Redis when
// rdb is non-nil, so every instance shares one budget per client; otherwise
// they are kept in process memory.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) (*limiter.Limiter, error) {
	rate := limiter.Rate{Period: cfg.Window, Limit: cfg.Max}
	if rdb == nil {
		return limiter.New(memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: cfg.Prefix}), rate), nil
	}
	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: cfg.Prefix, MaxRetry: 3})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// RateLimit rejects clients that exceeded their window with 429.  Store
// failures let the request through.
func RateLimit(l *limiter.Limiter) echo.MiddlewareFunc {
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			lc, err := l.Get(c.Request().Context(), ip)
			if err != nil {
				LoggerFrom(c).Warn("rate limit check failed", slog.String("ip", ip), slog.String("error", err.Error()))
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
			if lc.Reached {
				LoggerFrom(c).Warn("rate limit exceeded", slog.String("ip", ip), slog.Int64("limit", lc.Limit))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"success": false,
					"message": "too many requests, please try again later",
				})
			}
			return next(c)
		}
	}
}
