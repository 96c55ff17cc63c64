package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func at(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2026, 3, 12, hour, minute, 0, 0, loc)
}

func TestAvailableSlots_NoBusyIntervals(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)

	slots, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 60, nil, 15, loc)
	require.NoError(t, err)

	require.Len(t, slots, 33)
	assert.True(t, slots[0].Equal(at(loc, 10, 0)), "first slot %s", slots[0])
	assert.True(t, slots[len(slots)-1].Equal(at(loc, 18, 0)), "last slot %s", slots[len(slots)-1])
}

func TestAvailableSlots_BusyIntervalExcludesOverlaps(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	busy := []Interval{{Start: at(loc, 13, 0), End: at(loc, 14, 0)}}

	slots, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 60, busy, 15, loc)
	require.NoError(t, err)

	assert.Contains(t, slots, at(loc, 12, 0), "ending exactly at busy start is allowed")
	assert.Contains(t, slots, at(loc, 14, 0), "starting exactly at busy end is allowed")
	assert.NotContains(t, slots, at(loc, 12, 15))
	assert.NotContains(t, slots, at(loc, 13, 0))
	assert.NotContains(t, slots, at(loc, 13, 45))
	// 12:15, 12:30, 12:45, 13:00, 13:15, 13:30, 13:45 are removed.
	assert.Len(t, slots, 33-7)
}

func TestAvailableSlots_PropertiesHold(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	hours := BusinessHours{StartHour: 10, EndHour: 19}
	busy := []Interval{
		{Start: at(loc, 10, 20), End: at(loc, 11, 5)},
		{Start: at(loc, 15, 0), End: at(loc, 16, 30)},
		{Start: at(loc, 18, 50), End: at(loc, 20, 0)},
	}

	for _, duration := range []int{15, 45, 60, 95, 150, 540, 600} {
		slots, err := AvailableSlots(day, hours, duration, busy, 15, loc)
		require.NoError(t, err)
		_, dayEnd := hours.Window(day, loc)
		for i, slot := range slots {
			end := slot.Add(time.Duration(duration) * time.Minute)
			assert.False(t, end.After(dayEnd), "slot %s overruns closing for %d minutes", slot, duration)
			assert.False(t, OverlapsAny(slot, end, busy), "slot %s overlaps busy for %d minutes", slot, duration)
			if i > 0 {
				assert.True(t, slots[i-1].Before(slot), "slots must be ascending")
			}
		}
	}
}

func TestAvailableSlots_Idempotent(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	busy := []Interval{{Start: at(loc, 11, 0), End: at(loc, 12, 30)}}

	first, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 90, busy, 15, loc)
	require.NoError(t, err)
	second, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 90, busy, 15, loc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAvailableSlots_ConvertsBusyIntervalsToSalonZone(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	// 04:00-05:00 UTC is 13:00-14:00 in Tokyo.
	busy := []Interval{{
		Start: time.Date(2026, 3, 12, 4, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 12, 5, 0, 0, 0, time.UTC),
	}}

	slots, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 60, busy, 15, loc)
	require.NoError(t, err)

	assert.NotContains(t, slots, at(loc, 13, 0))
	assert.Contains(t, slots, at(loc, 12, 0))
	for _, s := range slots {
		assert.Equal(t, loc, s.Location())
	}
}

func TestAvailableSlots_EmptyWhenNothingFits(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)

	slots, err := AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 11}, 90, nil, 15, loc)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)

	fullyBusy := []Interval{{Start: at(loc, 9, 0), End: at(loc, 20, 0)}}
	slots, err = AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 30, fullyBusy, 15, loc)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_RejectsInvalidInput(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)

	_, err := AvailableSlots(day, BusinessHours{StartHour: 19, EndHour: 10}, 60, nil, 15, loc)
	assert.ErrorIs(t, err, ErrInvalidBusinessHours)
	_, err = AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 25}, 60, nil, 15, loc)
	assert.ErrorIs(t, err, ErrInvalidBusinessHours)
	_, err = AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 0, nil, 15, loc)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = AvailableSlots(day, BusinessHours{StartHour: 10, EndHour: 19}, 60, nil, 0, loc)
	assert.ErrorIs(t, err, ErrInvalidGranularity)
}

func TestAvailableSlots_MidnightClose(t *testing.T) {
	loc := tokyo(t)
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)

	slots, err := AvailableSlots(day, BusinessHours{StartHour: 22, EndHour: 24}, 60, nil, 30, loc)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.True(t, slots[2].Equal(at(loc, 23, 0)))
}

func TestInterval(t *testing.T) {
	loc := tokyo(t)
	_, err := NewInterval(at(loc, 10, 0), at(loc, 10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	iv, err := NewInterval(at(loc, 10, 0), at(loc, 11, 0))
	require.NoError(t, err)
	assert.True(t, iv.Overlaps(at(loc, 10, 30), at(loc, 10, 45)))
	assert.True(t, iv.Overlaps(at(loc, 9, 0), at(loc, 12, 0)))
	assert.False(t, iv.Overlaps(at(loc, 11, 0), at(loc, 12, 0)))
	assert.False(t, iv.Overlaps(at(loc, 9, 0), at(loc, 10, 0)))
}

func TestBusinessHoursContains(t *testing.T) {
	loc := tokyo(t)
	hours := BusinessHours{StartHour: 10, EndHour: 19}

	assert.True(t, hours.Contains(at(loc, 10, 0), at(loc, 19, 0), loc))
	assert.False(t, hours.Contains(at(loc, 9, 45), at(loc, 10, 45), loc))
	assert.False(t, hours.Contains(at(loc, 18, 30), at(loc, 19, 30), loc))
	// 01:00 UTC is 10:00 Tokyo.
	assert.True(t, hours.Contains(time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC), at(loc, 11, 0), loc))
}

func TestEngineDays(t *testing.T) {
	loc := tokyo(t)
	engine := NewEngine(loc, 0)
	assert.Equal(t, DefaultGranularityMinutes, engine.Granularity())

	from := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	busy := []Interval{{
		Start: time.Date(2026, 3, 13, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 13, 20, 0, 0, 0, loc),
	}}

	days, err := engine.Days(from, 3, BusinessHours{StartHour: 10, EndHour: 19}, 60, busy)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Equal(from))
	assert.True(t, days[1].Equal(from.AddDate(0, 0, 2)))

	none, err := engine.Days(from, 0, BusinessHours{StartHour: 10, EndHour: 19}, 60, busy)
	require.NoError(t, err)
	assert.Empty(t, none)
}
