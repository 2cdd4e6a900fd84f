package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// EchoMiddleware records request count and latency per route pattern.
func EchoMiddleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.RecordHTTPRequest(c.Path(), c.Request().Method, status, time.Since(start).Seconds())
			return err
		}
	}
}

func statusText(code int) string {
	return strconv.Itoa(code)
}
