// Package testdb provides an in-memory SQLite database shaped like the
// production restaurant table.  It is imported only by tests.
package testdb

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/iliyamo/restaurant-dashboard/internal/model"

	_ "modernc.org/sqlite"
)

var seq atomic.Int64

// Open creates a private in-memory database with an empty table named table.
func Open(t testing.TB, table string) *sql.DB {
	t.Helper()
	// Each test gets its own shared-cache memory database so that the pool's
	// connections see the same data.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", seq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ddl := fmt.Sprintf(`CREATE TABLE %q (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		name      TEXT NOT NULL,
		votes     INTEGER,
		city      TEXT,
		latitude  REAL,
		longitude REAL
	)`, table)
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// Seed inserts the given rows into table.
func Seed(t testing.TB, db *sql.DB, table string, rows ...model.Restaurant) {
	t.Helper()
	stmt := fmt.Sprintf(`INSERT INTO %q (name, votes, city, latitude, longitude) VALUES (?, ?, ?, ?, ?)`, table)
	for _, r := range rows {
		if _, err := db.Exec(stmt, r.Name, r.Votes, r.City, r.Latitude, r.Longitude); err != nil {
			t.Fatalf("seed %q: %v", r.Name, err)
		}
	}
}

// Row is shorthand for a fully populated record.
func Row(name string, votes int64, city string, lat, lon float64) model.Restaurant {
	return model.Restaurant{Name: name, Votes: &votes, City: &city, Latitude: &lat, Longitude: &lon}
}

// Named is a record with a name and vote count only.
func Named(name string, votes int64) model.Restaurant {
	return model.Restaurant{Name: name, Votes: &votes}
}
