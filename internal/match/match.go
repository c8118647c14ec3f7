// Package match decodes the remote match schedule feed into typed records.
//
// The feed is a JSON object with a "matches" array whose entries carry
// Team1, Team2, MatchTime and MatchDuration. Records that cannot be parsed
// are reported individually and never abort decoding of their siblings.
package match

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultDuration applies when MatchDuration is absent or not a positive number.
const DefaultDuration = 360 * time.Minute

// MaxDurationMinutes bounds MatchDuration; longer values are treated as
// invalid and DefaultDuration applies.
const MaxDurationMinutes = 7 * 24 * 60

// Record is a single scheduled match.
type Record struct {
	Team1    string
	Team2    string
	Start    time.Time
	Duration time.Duration
}

// End returns the scheduled end of the match.
func (r Record) End() time.Time {
	return r.Start.Add(r.Duration)
}

// Identity returns the composite key identifying the match for notifications.
func (r Record) Identity() Identity {
	return Identity{Team1: r.Team1, Team2: r.Team2, Start: r.Start.UTC()}
}

// Identity is (Team1, Team2, Start). Start is always normalized to UTC.
type Identity struct {
	Team1 string
	Team2 string
	Start time.Time
}

// Batch is the outcome of decoding one feed payload.
type Batch struct {
	// Raw holds the records exactly as received, for verbatim broadcast.
	Raw []json.RawMessage
	// Records holds the entries that parsed cleanly, in feed order.
	Records []Record
	// Skipped holds one *ParseError per entry that did not.
	Skipped []error
}

// ParseError describes a single record that could not be parsed.
type ParseError struct {
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("match record %d: field %s: %v", e.Index, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// wireRecord mirrors the feed's field names. Values are decoded loosely
// because the feed mixes strings and numbers.
type wireRecord struct {
	Team1         any `json:"Team1"`
	Team2         any `json:"Team2"`
	MatchTime     any `json:"MatchTime"`
	MatchDuration any `json:"MatchDuration"`
}

// Parser converts raw feed records into Records.
type Parser struct {
	// Location is used for MatchTime values without a zone offset.
	Location *time.Location
	// DefaultDuration replaces a missing or invalid MatchDuration.
	DefaultDuration time.Duration
}

// NewParser returns a Parser with the given zone and default duration.
// A nil location means UTC; a non-positive duration means DefaultDuration.
func NewParser(loc *time.Location, defaultDuration time.Duration) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return &Parser{Location: loc, DefaultDuration: defaultDuration}
}

// ParseAll parses every raw record. Failures are collected, not returned early.
func (p *Parser) ParseAll(raw []json.RawMessage) ([]Record, []error) {
	records := make([]Record, 0, len(raw))
	var skipped []error
	for i, msg := range raw {
		rec, err := p.Parse(i, msg)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// Parse parses a single raw record; index is used for error reporting.
func (p *Parser) Parse(index int, msg json.RawMessage) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(msg, &w); err != nil {
		return Record{}, &ParseError{Index: index, Field: "record", Err: err}
	}

	team1, ok := teamName(w.Team1)
	if !ok {
		return Record{}, &ParseError{Index: index, Field: "Team1", Err: fmt.Errorf("missing or not a string")}
	}
	team2, ok := teamName(w.Team2)
	if !ok {
		return Record{}, &ParseError{Index: index, Field: "Team2", Err: fmt.Errorf("missing or not a string")}
	}

	start, err := ParseTime(w.MatchTime, p.Location)
	if err != nil {
		return Record{}, &ParseError{Index: index, Field: "MatchTime", Err: err}
	}

	duration := p.DefaultDuration
	if minutes, ok := ExtractMinutes(w.MatchDuration); ok && minutes > 0 && minutes <= MaxDurationMinutes {
		duration = time.Duration(minutes) * time.Minute
	}

	return Record{Team1: team1, Team2: team2, Start: start, Duration: duration}, nil
}

func teamName(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
