package database

import "errors"

// ErrNotConnected is returned when a caller uses the handle that Open
// failed to produce.
var ErrNotConnected = errors.New("database not connected")
