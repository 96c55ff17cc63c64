package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/salon-booking/internal/availability"
)

// Memory is an in-process calendar for local development and tests.
type Memory struct {
	mu     sync.RWMutex
	events map[string]Event
	allDay []availability.Interval
}

func NewMemory() *Memory {
	return &Memory{events: make(map[string]Event)}
}

// AddAllDay records an all-day block, which BusyIntervals never reports.
func (m *Memory) AddAllDay(day time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	m.allDay = append(m.allDay, availability.Interval{Start: start, End: start.AddDate(0, 0, 1)})
}

func (m *Memory) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	busy := make([]availability.Interval, 0, len(m.events))
	for _, ev := range m.events {
		if ev.Start.Before(to) && ev.End.After(from) {
			busy = append(busy, availability.Interval{Start: ev.Start, End: ev.End})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

func (m *Memory) CreateEvent(ctx context.Context, event Event) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.events[id] = event
	m.mu.Unlock()
	return id, nil
}

// Events returns a copy of the stored events keyed by ID.
func (m *Memory) Events() map[string]Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Event, len(m.events))
	for id, ev := range m.events {
		out[id] = ev
	}
	return out
}
