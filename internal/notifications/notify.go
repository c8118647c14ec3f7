// Package notifications decides which match milestones are due and emits
// each one at most once.
//
// Pipeline: detect due milestones → claim dedup key → send → release on
// total send failure. The dedup store is owned here; the cleanup sweep goes
// through Engine.Sweep.
package notifications

import (
	"fmt"
	"time"

	"github.com/albapepper/matchwatch/internal/match"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	DefaultRetention = 24 * time.Hour
	defaultTitle     = "CricStreamZone"
	defaultPushBody  = "New match update available!"
	defaultPushTag   = "default"
	defaultIcon      = "/icon-192.png"
	defaultURL       = "/"
)

var defaultVibrate = []int{200, 100, 200}

// --------------------------------------------------------------------------
// Milestones
// --------------------------------------------------------------------------

// Milestone is a time-relative trigger point for a match notification.
type Milestone int

const (
	FifteenMinBefore Milestone = iota + 1
	FiveMinBefore
	Live
	Ended
)

// Milestones lists every milestone in evaluation precedence.
var Milestones = []Milestone{FifteenMinBefore, FiveMinBefore, Live, Ended}

// String returns the slug used in dedup keys, tags and metric labels.
func (m Milestone) String() string {
	switch m {
	case FifteenMinBefore:
		return "match-15min"
	case FiveMinBefore:
		return "match-5min"
	case Live:
		return "match-live"
	case Ended:
		return "match-end"
	default:
		return fmt.Sprintf("milestone(%d)", int(m))
	}
}

// Title returns the notification title for the milestone.
func (m Milestone) Title() string {
	switch m {
	case FifteenMinBefore:
		return "⏰ Match Starting Soon!"
	case FiveMinBefore:
		return "🚨 Match Starting Very Soon!"
	case Live:
		return "🔴 LIVE NOW!"
	case Ended:
		return "🏁 Match Ended"
	default:
		return defaultTitle
	}
}

// Body returns the notification body for the milestone and match.
func (m Milestone) Body(r match.Record) string {
	switch m {
	case FifteenMinBefore:
		return fmt.Sprintf("%s vs %s starts in 15 minutes", r.Team1, r.Team2)
	case FiveMinBefore:
		return fmt.Sprintf("%s vs %s starts in 5 minutes", r.Team1, r.Team2)
	case Live:
		return fmt.Sprintf("%s vs %s is now LIVE!", r.Team1, r.Team2)
	case Ended:
		return fmt.Sprintf("%s vs %s has ended", r.Team1, r.Team2)
	default:
		return fmt.Sprintf("%s vs %s", r.Team1, r.Team2)
	}
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Action is a button offered on a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is what a Sender displays.
type Notification struct {
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	Tag                string   `json:"tag"`
	Icon               string   `json:"icon,omitempty"`
	Badge              string   `json:"badge,omitempty"`
	URL                string   `json:"url,omitempty"`
	Vibrate            []int    `json:"vibrate,omitempty"`
	RequireInteraction bool     `json:"requireInteraction"`
	Silent             bool     `json:"silent"`
	Actions            []Action `json:"actions,omitempty"`
}

// Display carries the presentation defaults applied to every notification.
type Display struct {
	Icon string
	URL  string
}

func (d Display) withDefaults() Display {
	if d.Icon == "" {
		d.Icon = defaultIcon
	}
	if d.URL == "" {
		d.URL = defaultURL
	}
	return d
}

// build fills in icon, badge, url, vibration and the view/close actions.
func (d Display) build(title, body, tag, url string) Notification {
	d = d.withDefaults()
	if url == "" {
		url = d.URL
	}
	return Notification{
		Title:   title,
		Body:    body,
		Tag:     tag,
		Icon:    d.Icon,
		Badge:   d.Icon,
		URL:     url,
		Vibrate: append([]int(nil), defaultVibrate...),
		Actions: []Action{
			{Action: "view", Title: "View Match", Icon: d.Icon},
			{Action: "close", Title: "Close", Icon: d.Icon},
		},
	}
}

// Due is a (milestone, match) pair whose window holds at evaluation time.
type Due struct {
	Milestone Milestone
	Match     match.Record
	Key       Key
}

// Report summarizes one engine run.
type Report struct {
	Evaluated   int `json:"evaluated"`
	Due         int `json:"due"`
	Sent        int `json:"sent"`
	Duplicates  int `json:"duplicates"`
	StoreErrors int `json:"store_errors"`
	SendErrors  int `json:"send_errors"`
}
