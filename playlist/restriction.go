// Package playlist selects which media item plays next, honouring per item
// date and time-of-day windows.
package playlist

import (
	"fmt"
	"time"
)

// TimeOfDay is an offset from midnight.
type TimeOfDay time.Duration

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

// NewTimeOfDay builds a TimeOfDay from wall clock components.
func NewTimeOfDay(hour, min, sec int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(min)*time.Minute +
		time.Duration(sec)*time.Second)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Period is an absolute window, Start inclusive and End exclusive.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether now falls inside the period.
func (p Period) Contains(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.End)
}

// Daily is a time-of-day window that ignores the date.
type Daily struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether the time of day of now falls inside the window.
func (d Daily) Contains(now time.Time) bool {
	tod := ClockOf(now)
	return tod >= d.Start && tod < d.End
}

// Restriction holds the optional play constraints of a single item. A nil
// field means the constraint is not configured.
type Restriction struct {
	Period       *Period `json:"period,omitempty"`
	Daily        *Daily  `json:"daily,omitempty"`
	ScreenTime   *int    `json:"screen_time,omitempty"`
	SendFeedback *bool   `json:"send_feedback,omitempty"`
}

// Allows reports whether both configured windows hold at now.
func (r Restriction) Allows(now time.Time) bool {
	if r.Period != nil && !r.Period.Contains(now) {
		return false
	}
	if r.Daily != nil && !r.Daily.Contains(now) {
		return false
	}
	return true
}

// Item is a single playable unit.
type Item struct {
	Path        string      `json:"path"`
	Restriction Restriction `json:"restriction"`
}
