// Package calendar reads busy intervals from, and writes reservations to,
// the salon's calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/salon-booking/internal/availability"
)

// ErrConflict is returned by stores that reject overlapping events themselves.
var ErrConflict = errors.New("calendar: event overlaps an existing event")

// Event is a timed calendar entry.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Validate requires a title and a non-empty time range.
func (e Event) Validate() error {
	if e.Summary == "" {
		return errors.New("calendar: event summary required")
	}
	if !e.Start.Before(e.End) {
		return fmt.Errorf("calendar: event start %s must be before end %s", e.Start, e.End)
	}
	return nil
}

// Calendar is the busy-interval source and the reservation writer.
// BusyIntervals excludes all-day entries.
type Calendar interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error)
	CreateEvent(ctx context.Context, event Event) (string, error)
}
