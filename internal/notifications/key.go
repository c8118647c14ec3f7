package notifications

import (
	"fmt"
	"time"

	"github.com/albapepper/matchwatch/internal/match"
)

// Key identifies one notification: a milestone for a specific match.
type Key struct {
	Milestone Milestone
	Match     match.Identity
}

// NewKey builds the key for milestone m of record r.
func NewKey(m Milestone, r match.Record) Key {
	return Key{Milestone: m, Match: r.Identity()}
}

// String serializes the key as
//
//	{milestone}-{len(team1)}:{team1}-{len(team2)}:{team2}-{start}
//
// Length prefixes keep team names containing "-" or ":" from colliding with
// a different split of the same characters. The start time is RFC 3339 UTC.
func (k Key) String() string {
	return fmt.Sprintf("%s-%d:%s-%d:%s-%s",
		k.Milestone,
		len(k.Match.Team1), k.Match.Team1,
		len(k.Match.Team2), k.Match.Team2,
		k.Match.Start.UTC().Format(time.RFC3339))
}
