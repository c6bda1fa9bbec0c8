package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/utils"
)

// Echo context keys set by this package.
const (
	claimsKey = "claims"
	loggerKey = "logger"
)

// ClaimsFrom returns the access-token claims stored by JWTAuth.
func ClaimsFrom(c echo.Context) (*utils.Claims, bool) {
	cl, ok := c.Get(claimsKey).(*utils.Claims)
	return cl, ok && cl != nil
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if cl, ok := ClaimsFrom(c); ok {
		return cl.UserID
	}
	return ""
}

// LoggerFrom returns the request-scoped logger, falling back to the default.
func LoggerFrom(c echo.Context) *slog.Logger {
	if l, ok := c.Get(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
