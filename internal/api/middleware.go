package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/metrics"
	"go.uber.org/zap"
)

// quietPath reports paths polled often enough to flood the request log.
func quietPath(path string) bool {
	return path == "/health" ||
		path == "/metrics" ||
		strings.HasSuffix(path, "/progress")
}

// RequestLogger logs each request through zap and records its duration.
// Logging is skipped when logRequests is false; metrics are always kept.
func RequestLogger(log *zap.Logger, m *metrics.Metrics, logRequests bool) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			elapsed := time.Since(start)
			req := c.Request()
			status := c.Response().Status

			// Route pattern keeps label cardinality bounded.
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(req.Method, route, status, elapsed.Seconds())

			if logRequests && !quietPath(req.URL.Path) {
				log.Info("request",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.Int("status", status),
					zap.Duration("elapsed", elapsed),
					zap.String("remote", c.RealIP()))
			}
			return nil
		}
	}
}
