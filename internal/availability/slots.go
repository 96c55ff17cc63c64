// Package availability derives bookable start times for a salon day.
package availability

import (
	"errors"
	"fmt"
	"time"
)

// DefaultGranularityMinutes is the spacing between candidate start times.
const DefaultGranularityMinutes = 15

var (
	ErrInvalidInterval      = errors.New("availability: interval start must be before end")
	ErrInvalidBusinessHours = errors.New("availability: business hours must satisfy 0 <= start < end <= 24")
	ErrInvalidDuration      = errors.New("availability: duration must be positive")
	ErrInvalidGranularity   = errors.New("availability: granularity must be positive")
)

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval validates start < end.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// In returns the interval expressed in loc.
func (i Interval) In(loc *time.Location) Interval {
	return Interval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

// Overlaps reports whether [start, end) intersects i. Touching boundaries do not overlap.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}

// OverlapsAny reports whether [start, end) intersects any busy interval.
func OverlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// BusinessHours is the bookable wall-clock window of a salon day.
type BusinessHours struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// Validate checks 0 <= StartHour < EndHour <= 24.
func (b BusinessHours) Validate() error {
	if b.StartHour < 0 || b.EndHour > 24 || b.StartHour >= b.EndHour {
		return fmt.Errorf("%w: got %d-%d", ErrInvalidBusinessHours, b.StartHour, b.EndHour)
	}
	return nil
}

// Window returns the opening and closing instants of day in loc. The calendar
// date is read from day as given, so callers should parse dates in loc.
func (b BusinessHours) Window(day time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, b.StartHour, 0, 0, 0, loc)
	// EndHour 24 normalises to midnight of the following day.
	end := time.Date(y, m, d, b.EndHour, 0, 0, 0, loc)
	return start, end
}

// Contains reports whether [start, end) lies inside the business window of start's salon day.
func (b BusinessHours) Contains(start, end time.Time, loc *time.Location) bool {
	local := start.In(loc)
	open, closing := b.Window(local, loc)
	return !local.Before(open) && !end.After(closing)
}

// AvailableSlots lists the start times on day where a service of durationMinutes
// fits inside hours without overlapping busy. The result is ascending and may be empty.
func AvailableSlots(day time.Time, hours BusinessHours, durationMinutes int, busy []Interval, granularityMinutes int, loc *time.Location) ([]time.Time, error) {
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if granularityMinutes <= 0 {
		return nil, ErrInvalidGranularity
	}
	if loc == nil {
		loc = time.Local
	}

	localBusy := make([]Interval, 0, len(busy))
	for _, b := range busy {
		localBusy = append(localBusy, b.In(loc))
	}

	dayStart, dayEnd := hours.Window(day, loc)
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(granularityMinutes) * time.Minute

	slots := []time.Time{}
	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		end := t.Add(duration)
		if end.After(dayEnd) {
			continue
		}
		if OverlapsAny(t, end, localBusy) {
			continue
		}
		slots = append(slots, t)
	}
	return slots, nil
}

// Engine binds the salon location and slot granularity.
type Engine struct {
	loc         *time.Location
	granularity int
}

// NewEngine builds an engine; a non-positive granularity uses DefaultGranularityMinutes.
func NewEngine(loc *time.Location, granularityMinutes int) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularityMinutes
	}
	return &Engine{loc: loc, granularity: granularityMinutes}
}

// Location returns the salon location every comparison is made in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Granularity returns the candidate spacing in minutes.
func (e *Engine) Granularity() int {
	return e.granularity
}

// Slots computes the bookable start times for day.
func (e *Engine) Slots(day time.Time, hours BusinessHours, durationMinutes int, busy []Interval) ([]time.Time, error) {
	return AvailableSlots(day, hours, durationMinutes, busy, e.granularity, e.loc)
}

// Days returns the dates (midnight in the salon location) among the n days
// starting at from that have at least one bookable slot.
func (e *Engine) Days(from time.Time, n int, hours BusinessHours, durationMinutes int, busy []Interval) ([]time.Time, error) {
	if n <= 0 {
		return []time.Time{}, nil
	}
	y, m, d := from.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	days := []time.Time{}
	for i := 0; i < n; i++ {
		day := first.AddDate(0, 0, i)
		slots, err := e.Slots(day, hours, durationMinutes, busy)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			days = append(days, day)
		}
	}
	return days, nil
}
