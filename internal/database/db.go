package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes how to reach the MySQL server holding the restaurant table.
type Options struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN renders the driver connection string.  The driver's Config escapes
// credentials, so passwords containing '@' or '/' are safe.
func (o Options) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	cfg.Timeout = 5 * time.Second
	cfg.ReadTimeout = 30 * time.Second
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.  On failure the
// handle is closed and nil is returned together with the error.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	// The dashboard issues one query at a time per request.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Status summarizes the outcome of Open for operator-facing pages.
type Status struct {
	Connected bool
	Error     string
}

// StatusOf builds a Status from the result of Open.
func StatusOf(db *sql.DB, err error) Status {
	if err != nil {
		return Status{Error: err.Error()}
	}
	return Status{Connected: db != nil}
}

// Ping reports whether the handle is usable.  A nil handle is never ready.
func Ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
