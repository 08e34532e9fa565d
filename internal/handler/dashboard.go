// Package handler exposes the dashboard over HTTP: three HTML pages and a
// JSON API returning the same data.  Handlers hold no state of their own;
// everything they show comes from service.Dashboard.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/iliyamo/restaurant-dashboard/internal/database"
	"github.com/iliyamo/restaurant-dashboard/internal/model"
	"github.com/iliyamo/restaurant-dashboard/internal/service"
)

// DashboardHandler serves the pages and API endpoints.
type DashboardHandler struct {
	Dashboard *service.Dashboard // answers the queries with safe defaults
	Table     string             // table name shown on the summary page
	Status    database.Status    // outcome of the startup connection attempt
}

// NewDashboardHandler constructs a DashboardHandler and panics on a nil service.
func NewDashboardHandler(d *service.Dashboard, table string, st database.Status) *DashboardHandler {
	if d == nil {
		panic("nil dashboard passed to NewDashboardHandler")
	}
	return &DashboardHandler{Dashboard: d, Table: table, Status: st}
}

type summaryPage struct {
	Title  string
	Nav    string
	Table  string
	Status database.Status
	Range  model.VoteRange
}

// Summary renders the landing page: connection status and vote range.
func (h *DashboardHandler) Summary(c echo.Context) error {
	return c.Render(http.StatusOK, "summary.html", summaryPage{
		Title:  "Summary",
		Nav:    "summary",
		Table:  h.Table,
		Status: h.Status,
		Range:  h.Dashboard.VoteRange(c.Request().Context()),
	})
}

type searchPage struct {
	Title     string
	Nav       string
	Range     model.VoteRange
	Query     model.SearchQuery
	Submitted bool
	Error     string
	Results   []model.SearchResult
}

// Search renders the search form and, once submitted, the result table.
func (h *DashboardHandler) Search(c echo.Context) error {
	ctx := service.WithRemoteIP(c.Request().Context(), c.RealIP())
	vr := h.Dashboard.VoteRange(ctx)
	page := searchPage{
		Title: "Search",
		Nav:   "search",
		Range: vr,
		Query: model.SearchQuery{MinVotes: vr.Min, MaxVotes: vr.Max},
	}
	if len(c.QueryParams()) == 0 {
		return c.Render(http.StatusOK, "search.html", page)
	}

	page.Submitted = true
	q, err := searchQueryFrom(c, func() model.VoteRange { return vr })
	page.Query = q
	if err != nil {
		page.Error = err.Error()
		return c.Render(http.StatusBadRequest, "search.html", page)
	}
	page.Results = h.Dashboard.Search(ctx, q)
	return c.Render(http.StatusOK, "search.html", page)
}

type marker struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type mapPage struct {
	Title     string
	Nav       string
	Markers   []marker
	CenterLat float64
	CenterLon float64
	Zoom      int
}

// Map renders a Leaflet map with one labelled marker per restaurant.
func (h *DashboardHandler) Map(c echo.Context) error {
	locs := h.Dashboard.Locations(c.Request().Context())
	page := mapPage{
		Title: "Map",
		Nav:   "map",
		Markers: lo.Map(locs, func(l model.Location, _ int) marker {
			return marker{Name: l.Name, Lat: l.Latitude, Lon: l.Longitude}
		}),
		Zoom: 2,
	}
	if len(locs) > 0 {
		page.CenterLat = lo.SumBy(locs, func(l model.Location) float64 { return l.Latitude }) / float64(len(locs))
		page.CenterLon = lo.SumBy(locs, func(l model.Location) float64 { return l.Longitude }) / float64(len(locs))
		page.Zoom = 11
	}
	return c.Render(http.StatusOK, "map.html", page)
}
