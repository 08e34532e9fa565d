package repository

import (
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestValidTableName(t *testing.T) {
	is := is.New(t)
	is.True(ValidTableName("restaurants"))
	is.True(ValidTableName("business_location"))
	is.True(ValidTableName("_t1"))
	is.True(!ValidTableName("9lives"))
	is.True(!ValidTableName("a-b"))
	is.True(!ValidTableName("a b"))
	is.True(!ValidTableName(strings.Repeat("x", 65)))
}

func TestContainsPattern(t *testing.T) {
	is := is.New(t)
	is.Equal(containsPattern(""), "%%")
	is.Equal(containsPattern("Pizza"), "%Pizza%")
	is.Equal(containsPattern("50%_off!"), "%50!%!_off!!%")
}

func TestWrapErrClassifiesBadConn(t *testing.T) {
	is := is.New(t)
	is.NoErr(wrapErr("search", nil))
	is.True(errors.Is(wrapErr("search", driver.ErrBadConn), ErrNoConnection))

	var qe *QueryError
	is.True(errors.As(wrapErr("search", errors.New("syntax")), &qe))
	is.Equal(qe.Error(), "search: syntax")
}
