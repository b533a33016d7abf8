package httpx

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/pkg/logging"
)

// RequestLogger seeds the request context with a logger carrying the request
// id and writes one completion line per request. It expects echo's RequestID
// middleware ahead of it, which stamps the id on the response header before
// the chain runs.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Request().Header.Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// Route through the central handler now so the logged status
				// matches what the client receives.
				c.Error(err)
			}

			status := c.Response().Status
			durMs := time.Since(start).Milliseconds()

			switch {
			case status >= 500:
				l.Error("request completed", "status", status, "duration_ms", durMs, "error", err)
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", durMs)
			default:
				l.Info("request completed", "status", status, "duration_ms", durMs, "bytes", c.Response().Size)
			}
			return nil
		}
	}
}
