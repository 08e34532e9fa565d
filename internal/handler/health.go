package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a liveness endpoint.  It returns "ok" whenever the process
// serves HTTP, even without a database.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready returns a readiness endpoint backed by ping.  It answers 503 while
// the database is unreachable so load balancers can route around the pod.
func Ready(ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.String(http.StatusOK, "ready")
	}
}
