package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/pricing"
	"github.com/wolfman30/salon-booking/internal/salon"
)

const (
	warningMenuFallback = "menu source unavailable; showing the default menu"
	warningBusyUnknown  = "calendar unavailable; availability may be out of date"
)

// ClientConfig is the widget configuration served with the menu.
type ClientConfig struct {
	SalonName          string `json:"salonName"`
	StartHour          int    `json:"startHour"`
	EndHour            int    `json:"endHour"`
	DaysToShow         int    `json:"daysToShow"`
	GranularityMinutes int    `json:"granularityMinutes"`
	Timezone           string `json:"timezone"`
}

// InitialData is everything the widget needs before rendering slots.
type InitialData struct {
	Config    ClientConfig `json:"config"`
	MenuItems []menu.Item  `json:"menuItems"`
	Warning   string       `json:"warning,omitempty"`
}

// DaySlots lists the bookable start times of one date.
type DaySlots struct {
	Date            time.Time   `json:"-"`
	DurationMinutes int         `json:"durationMinutes"`
	Slots           []time.Time `json:"slots"`
	Warning         string      `json:"warning,omitempty"`
}

// InitialData returns the config and menu; a failed menu source degrades to the default menu.
func (s *Service) InitialData(ctx context.Context) InitialData {
	cfg := s.salonSettings(ctx)
	cat, degraded := s.menu.Catalog(ctx)
	data := InitialData{
		Config: ClientConfig{
			SalonName:          cfg.Name,
			StartHour:          cfg.StartHour,
			EndHour:            cfg.EndHour,
			DaysToShow:         cfg.DaysToShow,
			GranularityMinutes: s.engine.Granularity(),
			Timezone:           s.engine.Location().String(),
		},
		MenuItems: cat.Items(),
	}
	if degraded {
		s.metrics.ObserveDegraded("menu")
		data.Warning = warningMenuFallback
	}
	return data
}

// BusySlots returns timed busy intervals between today and the booking horizon.
// degraded is true when the calendar could not be read and the set is empty.
func (s *Service) BusySlots(ctx context.Context) (busy []availability.Interval, degraded bool) {
	cfg := s.salonSettings(ctx)
	return s.busy(ctx, s.today(), s.horizon(cfg))
}

func (s *Service) busy(ctx context.Context, from, to time.Time) ([]availability.Interval, bool) {
	busy, err := s.calendar.BusyIntervals(ctx, from, to)
	if err != nil {
		s.logger.Warn("calendar unavailable, serving empty busy set", "error", err)
		s.metrics.ObserveDegraded("calendar")
		return []availability.Interval{}, true
	}
	loc := s.engine.Location()
	out := make([]availability.Interval, 0, len(busy))
	for _, b := range busy {
		out = append(out, b.In(loc))
	}
	return out, false
}

// Quote prices a course with options for the client preview.
func (s *Service) Quote(ctx context.Context, courseName string, opts pricing.Options) (pricing.Quote, error) {
	cat, _ := s.menu.Catalog(ctx)
	q, err := pricing.QuoteFor(cat, courseName, opts)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return q, nil
}

// Slots computes the bookable start times on day for a course and options.
// Start times that already passed are dropped.
func (s *Service) Slots(ctx context.Context, day time.Time, courseName string, opts pricing.Options) (*DaySlots, error) {
	q, err := s.Quote(ctx, courseName, opts)
	if err != nil {
		return nil, err
	}
	cfg := s.salonSettings(ctx)
	loc := s.engine.Location()
	y, m, d := day.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if cfg.DaysToShow > 0 && !date.Before(s.horizon(cfg)) {
		s.metrics.ObserveSlotQuery(true)
		return &DaySlots{Date: date, DurationMinutes: q.TotalMinutes, Slots: []time.Time{}}, nil
	}

	busy, degraded := s.busy(ctx, date, date.AddDate(0, 0, 1))
	slots, err := s.engine.Slots(date, cfg.Hours(), q.TotalMinutes, busy)
	if err != nil {
		return nil, s.engineError(err)
	}
	slots = s.dropPast(slots)
	s.metrics.ObserveSlotQuery(len(slots) == 0)

	out := &DaySlots{Date: date, DurationMinutes: q.TotalMinutes, Slots: slots}
	if degraded {
		out.Warning = warningBusyUnknown
	}
	return out, nil
}

// AvailableDays returns the dates in [from, from+days) with at least one future slot.
func (s *Service) AvailableDays(ctx context.Context, from time.Time, days int, courseName string, opts pricing.Options) ([]time.Time, string, error) {
	q, err := s.Quote(ctx, courseName, opts)
	if err != nil {
		return nil, "", err
	}
	cfg := s.salonSettings(ctx)
	if days <= 0 || days > cfg.DaysToShow {
		days = cfg.DaysToShow
	}
	loc := s.engine.Location()
	y, m, d := from.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if today := s.today(); first.Before(today) {
		first = today
	}
	for days > 0 && !first.AddDate(0, 0, days-1).Before(s.horizon(cfg)) {
		days--
	}
	if days == 0 {
		return []time.Time{}, "", nil
	}

	busy, degraded := s.busy(ctx, first, first.AddDate(0, 0, days))
	candidates, err := s.engine.Days(first, days, cfg.Hours(), q.TotalMinutes, busy)
	if err != nil {
		return nil, "", s.engineError(err)
	}

	out := make([]time.Time, 0, len(candidates))
	today := s.today()
	for _, day := range candidates {
		if day.Equal(today) {
			slots, err := s.engine.Slots(day, cfg.Hours(), q.TotalMinutes, busy)
			if err != nil {
				return nil, "", s.engineError(err)
			}
			if len(s.dropPast(slots)) == 0 {
				continue
			}
		}
		out = append(out, day)
	}
	warning := ""
	if degraded {
		warning = warningBusyUnknown
	}
	return out, warning, nil
}

func (s *Service) today() time.Time {
	now := s.now().In(s.engine.Location())
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// horizon is the first midnight past the bookable range: DaysToShow days
// starting today. Queries and commits share it.
func (s *Service) horizon(cfg *salon.Settings) time.Time {
	return s.today().AddDate(0, 0, cfg.DaysToShow)
}

func (s *Service) dropPast(slots []time.Time) []time.Time {
	now := s.now()
	out := slots[:0]
	for _, t := range slots {
		if t.After(now) {
			out = append(out, t)
		}
	}
	return out
}

// engineError treats invalid stored business hours as an upstream failure.
func (s *Service) engineError(err error) error {
	if errors.Is(err, availability.ErrInvalidBusinessHours) {
		s.logger.Error("salon business hours are invalid", "error", err)
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
