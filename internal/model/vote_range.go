package model

// Bounds used when the table is empty or cannot be read.
const (
	DefaultMinVotes int64 = 0
	DefaultMaxVotes int64 = 1000
)

// VoteRange is the smallest and largest vote count in the table.  Min is
// never greater than Max.
type VoteRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// DefaultVoteRange is the range reported for an empty or unreachable table.
func DefaultVoteRange() VoteRange {
	return VoteRange{Min: DefaultMinVotes, Max: DefaultMaxVotes}
}

// SearchQuery filters restaurants by a name substring and an inclusive vote
// window.  An empty Name matches every row.
type SearchQuery struct {
	Name     string
	MinVotes int64
	MaxVotes int64
}

// EmptyWindow reports whether no vote count can satisfy the bounds.
func (q SearchQuery) EmptyWindow() bool {
	return q.MinVotes > q.MaxVotes
}
