package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

// JWTAuth verifies the Bearer access token and stores its claims in the
// context for ClaimsFrom.  Refresh tokens are rejected since they are
// signed with another secret.
func JWTAuth(codec *utils.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, found := strings.Cut(auth, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return apperrors.NewUnauthorized("missing bearer token")
			}
			claims, err := codec.VerifyAccess(strings.TrimSpace(raw))
			if err != nil {
				LoggerFrom(c).Warn("access token rejected")
				return apperrors.NewUnauthorized("invalid or expired token")
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}
