package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/salon-booking/internal/availability"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Google reads and writes a single Google calendar.
type Google struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
}

// NewGoogle builds a Google Calendar adapter; loc sets the zone of created events.
func NewGoogle(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Google, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar: calendar id required")
	}
	if loc == nil {
		loc = time.UTC
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: google client: %w", err)
	}
	return &Google{svc: svc, calendarID: calendarID, loc: loc}, nil
}

func (g *Google) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	var busy []availability.Interval
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			interval, ok := timedInterval(item)
			if !ok {
				continue
			}
			busy = append(busy, interval)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	return busy, nil
}

// timedInterval skips all-day and cancelled entries.
func timedInterval(item *gcal.Event) (availability.Interval, bool) {
	if item == nil || item.Status == "cancelled" || item.Start == nil || item.End == nil {
		return availability.Interval{}, false
	}
	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return availability.Interval{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return availability.Interval{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return availability.Interval{}, false
	}
	interval, err := availability.NewInterval(start, end)
	if err != nil {
		return availability.Interval{}, false
	}
	return interval, true
}

func (g *Google) CreateEvent(ctx context.Context, event Event) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}
	created, err := g.svc.Events.Insert(g.calendarID, &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}
