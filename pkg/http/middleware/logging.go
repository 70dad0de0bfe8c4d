package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"BotRadar/pkg/logger"
)

// RequestLogging writes one debug line per request. Handler errors are
// resolved through echo's error handler first so the logged status is final.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			l.Debug("http request",
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)))
			return nil
		}
	}
}
