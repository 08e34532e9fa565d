package router // package router defines how HTTP routes are registered for the dashboard

import (
	"context"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/restaurant-dashboard/internal/handler"    // handlers rendering pages and JSON
	"github.com/iliyamo/restaurant-dashboard/internal/middleware" // token auth, cache and rate limiting
)

// RegisterRoutes registers the unauthenticated health endpoints.  /healthz reports
// liveness; /readyz also pings the database.
func RegisterRoutes(e *echo.Echo, ping func(ctx context.Context) error) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ping))
}

// RegisterPages registers the HTML dashboard.  Pages are public.
func RegisterPages(e *echo.Echo, h *handler.DashboardHandler) {
	e.GET("/", h.Summary)
	e.GET("/search", h.Search)
	e.GET("/map", h.Map)
}

// RegisterAPI registers the JSON API under /v1.  Middlewares run in order:
// token check, scope check, rate limit, then the response cache, so that a
// cached response is never served to an unauthenticated caller.
func RegisterAPI(e *echo.Echo, h *handler.DashboardHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.APIToken(jwtSecret))
	g.Use(middleware.RequireScope(jwtSecret, middleware.ScopeRead))
	g.Use(mws...)

	g.GET("/votes/range", h.GetVoteRange)
	g.GET("/restaurants", h.SearchRestaurants)
	g.GET("/restaurants/locations", h.GetLocations)
	g.GET("/restaurants/locations.geojson", h.GetLocationsGeoJSON)
}
