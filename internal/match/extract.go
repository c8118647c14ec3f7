package match

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order for string MatchTime values. Layouts
// without an offset are interpreted in the parser's location.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var errNoTime = errors.New("missing")

// ParseTime normalizes a MatchTime value from the feed.
//
// Strings are matched against timeLayouts. Numbers are treated as unix
// milliseconds, which is what spreadsheet-backed feeds emit for date cells.
func ParseTime(val interface{}, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch v := val.(type) {
	case nil:
		return time.Time{}, errNoTime
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, fmt.Errorf("invalid timestamp %v", v)
		}
		return time.UnixMilli(int64(v)).UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, errNoTime
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", val)
	}
}

// ExtractMinutes normalizes a MatchDuration value from the feed.
//
// The feed sends either a JSON number or a string such as "360" or
// "300 mins". Strings contribute their leading integer, so "300 mins" is 300
// and "abc" is not extractable.
//
// Returns the whole number of minutes, and ok=false if not extractable.
func ExtractMinutes(val interface{}) (int, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if math.IsNaN(v) || v >= float64(math.MaxInt) || v < float64(math.MinInt) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		return leadingInt(v)
	default:
		return 0, false
	}
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
