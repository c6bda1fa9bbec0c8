package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestLogger injects a request-scoped logger carrying request_id, method
// and path, echoes the id in X-Request-ID and logs completion.  An incoming
// X-Request-ID is kept when it parses as a UUID.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if uuid.Validate(requestID) != nil {
				requestID = uuid.NewString()
			}
			logger := base.With(
				slog.String("request_id", requestID),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.Set(loggerKey, logger)

			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{slog.Int("status", status), slog.Duration("latency", time.Since(start))}
			if uid := UserID(c); uid != "" {
				attrs = append(attrs, slog.String("user_id", uid))
			}
			switch {
			case status >= 500:
				logger.Error("request completed", attrs...)
			case status >= 400:
				logger.Warn("request completed", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
			return nil
		}
	}
}
