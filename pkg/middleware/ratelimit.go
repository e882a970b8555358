package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	astercontext "github.com/Ramsey-B/aster/pkg/context"
	"github.com/Ramsey-B/aster/pkg/redis"
)

// RateLimit throttles a route per caller. Keyed by user id when
// authenticated, falling back to the remote IP. Fails open when Redis is
// unavailable so the store never gates writes on the cache.
func RateLimit(limiter *redis.RateLimiter, limit int64, window time.Duration, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			key := astercontext.GetUserID(ctx)
			if key == "" {
				key = c.RealIP()
			}

			result, err := limiter.Allow(ctx, key, limit, window)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("rate limit check failed, allowing request")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

			if !result.Allowed {
				retry := int(result.RetryIn.Seconds())
				if retry < 1 {
					retry = 1
				}
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retry))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			return next(c)
		}
	}
}
