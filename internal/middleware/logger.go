package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request. Server errors log at error
// level, everything else at info.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency", time.Since(start),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
			}
			if res.Status >= 500 {
				logger.Error("request", append(fields, "err", err)...)
			} else {
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
