// Package schedule detects overlapping event schedules on capture devices.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Common schedule errors.
var (
	ErrInvalidInterval = errors.New("interval end must be after start")
	ErrNoDevice        = errors.New("device is required")
	ErrInvalidRepeat   = errors.New("repeat needs weekdays and an end date")
)

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start" msgpack:"start"`
	End   time.Time `json:"end" msgpack:"end"`
}

// Valid reports whether End is after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share any instant. Touching intervals do
// not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// In returns i with both ends converted to loc.
func (i Interval) In(loc *time.Location) Interval {
	if loc == nil {
		return i
	}
	return Interval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

func (i Interval) String() string {
	return fmt.Sprintf("%s - %s", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// Booking is an event scheduled on a device.
type Booking struct {
	EventID string `json:"id"`
	Title   string `json:"title"`
	Device  string `json:"device"`
	Interval
}

// Conflict is an existing event that overlaps a proposal.
type Conflict struct {
	EventID string    `json:"eventId,omitempty"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Repeat expands a proposal into one interval per matching weekday until
// Until, inclusive of that date.
type Repeat struct {
	Weekdays []time.Weekday `json:"weekdays"`
	Until    time.Time      `json:"until"`
}

// last returns the end of the Until day in loc.
func (r *Repeat) last(loc *time.Location) time.Time {
	until := r.Until.In(loc)
	return time.Date(until.Year(), until.Month(), until.Day(), 23, 59, 59, 0, loc)
}

// Proposal is a candidate schedule for one event.
type Proposal struct {
	Device   string `json:"device"`
	Interval `json:"interval"`

	// ExcludeEventID ignores the event being edited.
	ExcludeEventID string `json:"excludeEventId,omitempty"`

	Repeat *Repeat `json:"repeat,omitempty"`
}

// Validate checks the proposal before it is sent anywhere.
func (p Proposal) Validate() error {
	if p.Device == "" {
		return ErrNoDevice
	}
	if !p.Interval.Valid() {
		return ErrInvalidInterval
	}
	if p.Repeat != nil && (len(p.Repeat.Weekdays) == 0 || p.Repeat.last(p.Start.Location()).Before(p.Start)) {
		return ErrInvalidRepeat
	}
	return nil
}

// Expand returns every occurrence of p. A proposal without Repeat has one
// occurrence. Occurrences keep the wall-clock start and duration in the
// start's location across DST changes.
func (p Proposal) Expand() []Interval {
	if p.Repeat == nil {
		return []Interval{p.Interval}
	}

	days := make(map[time.Weekday]bool, len(p.Repeat.Weekdays))
	for _, d := range p.Repeat.Weekdays {
		days[d] = true
	}

	last := p.Repeat.last(p.Start.Location())
	dur := p.Duration()

	var out []Interval
	for day := p.Start; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !days[day.Weekday()] {
			continue
		}
		out = append(out, Interval{Start: day, End: day.Add(dur)})
	}
	return out
}
