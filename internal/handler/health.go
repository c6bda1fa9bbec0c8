package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers and uptime monitors.  It does not touch
// the primary store or the cache.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Server is healthy"})
}
