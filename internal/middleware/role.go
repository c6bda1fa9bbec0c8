package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/service"
)

// RequireRole allows the request through only when JWTAuth stored claims
// carrying one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := ClaimsFrom(c)
			if err := service.RequireRole(claims, roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
