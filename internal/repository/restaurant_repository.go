// Package repository contains data access logic separated from HTTP handlers.
// This file holds the three read-only queries over the restaurant table:
// the vote range, the name/vote search and the restaurant coordinates.
package repository

import (
	"context"      // context carries request deadlines into every query
	"database/sql" // sql provides generic database operations and drivers
	"strings"

	"github.com/iliyamo/restaurant-dashboard/internal/database"
	"github.com/iliyamo/restaurant-dashboard/internal/model"
)

// likeEscape is the escape character used in LIKE patterns.  It is not a
// backslash so that the same statement behaves identically on MySQL and
// SQLite, whose backslash handling differs.
const likeEscape = "!"

// RestaurantRepo encapsulates all database queries related to restaurants.
// The handle may be nil when the server started without a database; every
// method then returns ErrNoConnection.
type RestaurantRepo struct {
	db    *sql.DB // db is the underlying database connection pool
	table string  // table is the validated, unquoted table name
	err   error   // err is set when the table name was rejected
}

// NewRestaurantRepo constructs a RestaurantRepo over the given table.  An
// invalid table name does not fail construction; it is reported by Err and
// by every query so that the server keeps running.
func NewRestaurantRepo(db *sql.DB, table string) *RestaurantRepo {
	r := &RestaurantRepo{db: db, table: table}
	if !ValidTableName(table) {
		r.err = ErrInvalidTable
	}
	return r
}

// Table returns the configured table name.
func (r *RestaurantRepo) Table() string { return r.table }

// Err reports a configuration problem detected at construction.
func (r *RestaurantRepo) Err() error { return r.err }

// Connected reports whether the repository holds a usable handle.
func (r *RestaurantRepo) Connected() bool { return r.db != nil && r.err == nil }

// Ping reports whether queries can run: the table name must be valid and
// the handle must answer a ping.
func (r *RestaurantRepo) Ping(ctx context.Context) error {
	if err := r.ready(); err != nil {
		return err
	}
	return wrapErr("ping", database.Ping(ctx, r.db))
}

func (r *RestaurantRepo) ready() error {
	if r.err != nil {
		return r.err
	}
	if r.db == nil {
		return ErrNoConnection
	}
	return nil
}

// VoteRange returns the smallest and largest vote counts, treating NULL as
// zero.  ok is false when the table has no rows.
func (r *RestaurantRepo) VoteRange(ctx context.Context) (vr model.VoteRange, ok bool, err error) {
	if err := r.ready(); err != nil {
		return model.VoteRange{}, false, err
	}
	q := "SELECT MIN(COALESCE(votes, 0)), MAX(COALESCE(votes, 0)) FROM " + quoteIdent(r.table)
	var lo, hi sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q).Scan(&lo, &hi); err != nil {
		return model.VoteRange{}, false, wrapErr("vote range", err)
	}
	if !lo.Valid || !hi.Valid {
		return model.VoteRange{}, false, nil
	}
	return model.VoteRange{Min: lo.Int64, Max: hi.Int64}, true, nil
}

// Search returns rows whose name contains q.Name and whose vote count lies
// within [q.MinVotes, q.MaxVotes], most voted first.  The name is matched
// literally: LIKE wildcards in the input are escaped, and the value is
// always bound as a parameter.
func (r *RestaurantRepo) Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if q.EmptyWindow() {
		return []model.SearchResult{}, nil
	}

	stmt := `SELECT name, COALESCE(votes, 0), city
		FROM ` + quoteIdent(r.table) + `
		WHERE name LIKE ? ESCAPE '` + likeEscape + `'
		  AND COALESCE(votes, 0) BETWEEN ? AND ?
		ORDER BY COALESCE(votes, 0) DESC, name ASC`

	rows, err := r.db.QueryContext(ctx, stmt, containsPattern(q.Name), q.MinVotes, q.MaxVotes)
	if err != nil {
		return nil, wrapErr("search", err)
	}
	defer rows.Close()

	out := make([]model.SearchResult, 0)
	for rows.Next() {
		var (
			res  model.SearchResult
			city sql.NullString
		)
		if err := rows.Scan(&res.Name, &res.Votes, &city); err != nil {
			return nil, wrapErr("search", err)
		}
		res.City = city.String
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search", err)
	}
	return out, nil
}

// Locations returns every restaurant that has both a latitude and a
// longitude, ordered by name.
func (r *RestaurantRepo) Locations(ctx context.Context) ([]model.Location, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	stmt := `SELECT name, latitude, longitude
		FROM ` + quoteIdent(r.table) + `
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, wrapErr("locations", err)
	}
	defer rows.Close()

	out := make([]model.Location, 0)
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.Name, &l.Latitude, &l.Longitude); err != nil {
			return nil, wrapErr("locations", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("locations", err)
	}
	return out, nil
}

// containsPattern builds a LIKE pattern matching s anywhere in the value.
func containsPattern(s string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return "%" + r.Replace(s) + "%"
}
