package notifications

import (
	"time"

	"github.com/albapepper/matchwatch/internal/match"
)

// Windows are half-open on the past side so a milestone cannot retrigger
// once time has moved beyond it. Each is slightly wider than a 60s poll so
// at least one tick lands inside.
const (
	fifteenMinLow  = 14 * time.Minute
	fifteenMinHigh = 15 * time.Minute
	fiveMinLow     = 4 * time.Minute
	fiveMinHigh    = 5 * time.Minute
	liveLow        = -1 * time.Minute
	endedGrace     = 1 * time.Minute
)

// Windows holds the configurable part of the milestone windows.
type Windows struct {
	// LiveAfter is the inclusive upper bound of the Live window measured as
	// start-now. Zero gives (-1m, 0]; one minute gives (-1m, +1m].
	LiveAfter time.Duration
}

// Detect returns the milestone whose window holds for r at now. Windows are
// tested in precedence order and the first match wins.
func (w Windows) Detect(r match.Record, now time.Time) (Milestone, bool) {
	diff := r.Start.Sub(now)

	switch {
	case diff > fifteenMinLow && diff <= fifteenMinHigh:
		return FifteenMinBefore, true
	case diff > fiveMinLow && diff <= fiveMinHigh:
		return FiveMinBefore, true
	case diff > liveLow && diff <= w.LiveAfter:
		return Live, true
	}

	end := r.End()
	if !now.Before(end) && now.Sub(end) <= endedGrace {
		return Ended, true
	}
	return 0, false
}
