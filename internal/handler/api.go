package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/iliyamo/restaurant-dashboard/internal/model"
	"github.com/iliyamo/restaurant-dashboard/internal/service"
)

// GetVoteRange returns {"min":..,"max":..}.
func (h *DashboardHandler) GetVoteRange(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Dashboard.VoteRange(c.Request().Context()))
}

// SearchRestaurants filters by ?name=, ?min_votes= and ?max_votes=.
// Bounds default to the current vote range.
func (h *DashboardHandler) SearchRestaurants(c echo.Context) error {
	ctx := service.WithRemoteIP(c.Request().Context(), c.RealIP())
	q, err := searchQueryFrom(c, func() model.VoteRange { return h.Dashboard.VoteRange(ctx) })
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "invalid " + pe.Param,
				"message": pe.Error(),
			})
		}
		return err
	}
	items := h.Dashboard.Search(ctx, q)
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": len(items),
	})
}

// GetLocations returns every restaurant with coordinates.
func (h *DashboardHandler) GetLocations(c echo.Context) error {
	items := h.Dashboard.Locations(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": len(items),
	})
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Geometry   geoJSONGeometry   `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// GetLocationsGeoJSON returns the locations as a FeatureCollection of
// points.  GeoJSON orders coordinates longitude first.
func (h *DashboardHandler) GetLocationsGeoJSON(c echo.Context) error {
	locs := h.Dashboard.Locations(c.Request().Context())
	fc := geoJSONCollection{
		Type: "FeatureCollection",
		Features: lo.Map(locs, func(l model.Location, _ int) geoJSONFeature {
			return geoJSONFeature{
				Type:       "Feature",
				Geometry:   geoJSONGeometry{Type: "Point", Coordinates: [2]float64{l.Longitude, l.Latitude}},
				Properties: map[string]string{"name": l.Name},
			}
		}),
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/geo+json")
	return c.JSON(http.StatusOK, fc)
}
