package middleware

import (
	"github.com/labstack/echo/v4"

	astercontext "github.com/Ramsey-B/aster/pkg/context"
)

// TestAuth middleware extracts user identity from headers when auth is disabled.
// This allows testing the API without a real OIDC provider.
// Headers:
//   - X-User-ID: The user ID
//   - X-User-Role: The user role (e.g. "admin")
//
// WARNING: Only use this when AUTH_ENABLED=false. Do not enable in production.
func TestAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			userID := c.Request().Header.Get("X-User-ID")
			if userID != "" {
				ctx = astercontext.SetUserID(ctx, userID)
			}

			role := c.Request().Header.Get("X-User-Role")
			if role != "" {
				ctx = astercontext.SetUserRole(ctx, role)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
