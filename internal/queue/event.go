package queue

import "time"

// SearchPerformedEvent is published after every restaurant search.  It
// records the filter and how many rows matched, never the rows themselves.
type SearchPerformedEvent struct {
	Name       string    `json:"name"`
	MinVotes   int64     `json:"min_votes"`
	MaxVotes   int64     `json:"max_votes"`
	Results    int       `json:"results"`
	Degraded   bool      `json:"degraded"` // true when the store failed and the default was returned
	RemoteIP   string    `json:"remote_ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
