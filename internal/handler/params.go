package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-dashboard/internal/model"
)

// paramError names the query parameter that failed to parse.
type paramError struct {
	Param string
	Value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %q is not a whole number", e.Param, e.Value)
}

// searchQueryFrom reads name, min_votes and max_votes.  Missing bounds fall
// back to the table's vote range, which is only queried when needed.
func searchQueryFrom(c echo.Context, voteRange func() model.VoteRange) (model.SearchQuery, error) {
	q := model.SearchQuery{Name: strings.TrimSpace(c.QueryParam("name"))}
	if strings.TrimSpace(c.QueryParam("min_votes")) == "" || strings.TrimSpace(c.QueryParam("max_votes")) == "" {
		vr := voteRange()
		q.MinVotes, q.MaxVotes = vr.Min, vr.Max
	}
	var err error
	if q.MinVotes, err = int64Param(c, "min_votes", q.MinVotes); err != nil {
		return q, err
	}
	if q.MaxVotes, err = int64Param(c, "max_votes", q.MaxVotes); err != nil {
		return q, err
	}
	return q, nil
}

func int64Param(c echo.Context, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, &paramError{Param: name, Value: raw}
	}
	return n, nil
}
