// Package service is the boundary between the HTTP layer and the
// restaurant repository.  Every store failure stops here: it is logged and
// replaced by the safe default, so handlers never see a database error.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/restaurant-dashboard/internal/model"
	"github.com/iliyamo/restaurant-dashboard/internal/queue"
)

// RestaurantStore is the subset of repository.RestaurantRepo the dashboard needs.
type RestaurantStore interface {
	Table() string
	VoteRange(ctx context.Context) (model.VoteRange, bool, error)
	Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error)
	Locations(ctx context.Context) ([]model.Location, error)
}

// SearchAuditor receives one event per search.  queue.Publisher implements it.
type SearchAuditor interface {
	PublishSearch(ctx context.Context, ev queue.SearchPerformedEvent) error
}

// Dashboard answers the three dashboard queries with safe defaults.
type Dashboard struct {
	store   RestaurantStore
	auditor SearchAuditor
	logger  zerolog.Logger
	now     func() time.Time
}

// NewDashboard wires a Dashboard.  auditor may be nil.
func NewDashboard(store RestaurantStore, auditor SearchAuditor) *Dashboard {
	if store == nil {
		panic("nil store passed to NewDashboard")
	}
	return &Dashboard{
		store:   store,
		auditor: auditor,
		logger:  log.With().Str("component", "dashboard").Str("table", store.Table()).Logger(),
		now:     time.Now,
	}
}

// VoteRange returns the smallest and largest vote counts.  An empty table or
// any failure yields model.DefaultVoteRange.
func (d *Dashboard) VoteRange(ctx context.Context) model.VoteRange {
	vr, ok, err := d.store.VoteRange(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("op", "vote_range").Msg("query failed; using default vote range")
		return model.DefaultVoteRange()
	}
	if !ok {
		return model.DefaultVoteRange()
	}
	if vr.Min > vr.Max {
		vr.Min, vr.Max = vr.Max, vr.Min
	}
	return vr
}

// Search returns restaurants matching q, most voted first.  Inverted bounds
// and failures yield an empty, non-nil slice.
func (d *Dashboard) Search(ctx context.Context, q model.SearchQuery) []model.SearchResult {
	out := []model.SearchResult{}
	degraded := false
	if !q.EmptyWindow() {
		res, err := d.store.Search(ctx, q)
		if err != nil {
			d.logger.Error().Err(err).Str("op", "search").Str("name", q.Name).
				Int64("min_votes", q.MinVotes).Int64("max_votes", q.MaxVotes).
				Msg("query failed; returning no results")
			degraded = true
		} else if res != nil {
			out = res
		}
	}
	d.audit(ctx, q, len(out), degraded)
	return out
}

// Locations returns every restaurant with both coordinates.  Failures yield
// an empty, non-nil slice.
func (d *Dashboard) Locations(ctx context.Context) []model.Location {
	locs, err := d.store.Locations(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("op", "locations").Msg("query failed; returning no locations")
		return []model.Location{}
	}
	if locs == nil {
		return []model.Location{}
	}
	return locs
}

func (d *Dashboard) audit(ctx context.Context, q model.SearchQuery, n int, degraded bool) {
	if d.auditor == nil {
		return
	}
	ev := queue.SearchPerformedEvent{
		Name:       q.Name,
		MinVotes:   q.MinVotes,
		MaxVotes:   q.MaxVotes,
		Results:    n,
		Degraded:   degraded,
		RemoteIP:   remoteIPFrom(ctx),
		OccurredAt: d.now().UTC(),
	}
	if err := d.auditor.PublishSearch(ctx, ev); err != nil {
		d.logger.Debug().Err(err).Msg("search audit event dropped")
	}
}
