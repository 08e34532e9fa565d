// Package repository defines error types shared by the query methods.
// Higher layers use them to tell an unreachable store from a failed
// statement; both end up as a safe default for the caller.
package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrNoConnection is returned when the repository has no database handle
// or the driver reports that the connection is unusable.
var ErrNoConnection = errors.New("no database connection")

// ErrInvalidTable is returned when the configured table name is not a plain
// SQL identifier.  Table names cannot be bound as parameters, so anything
// else is refused rather than spliced into a statement.
var ErrInvalidTable = errors.New("invalid table name")

// QueryError wraps a failure that happened while running or scanning a
// statement.  Op names the repository method.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// wrapErr classifies a driver error for the given operation.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %w: %v", op, ErrNoConnection, err)
	}
	return &QueryError{Op: op, Err: err}
}
