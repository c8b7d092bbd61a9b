package workhours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rush86999/atomic-sub002/internal/models"
)

func fullWeekPreference() *models.UserPreference {
	pref := &models.UserPreference{UserID: "u1"}
	for day := 1; day <= 7; day++ {
		pref.StartTimes = append(pref.StartTimes, models.DayTime{Day: day, Hour: 9, Minute: 0})
		pref.EndTimes = append(pref.EndTimes, models.DayTime{Day: day, Hour: 17, Minute: 0})
	}
	return pref
}

func TestForInternal(t *testing.T) {
	pref := fullWeekPreference()

	t.Run("resolves the weekday entry", func(t *testing.T) {
		w, err := ForInternal(pref, 1)
		require.NoError(t, err)
		assert.Equal(t, 9, w.StartHour)
		assert.Equal(t, 17, w.EndHour)
		assert.Equal(t, 8.0, w.WorkingHours())
		assert.Equal(t, "09:00:00", w.StartClock())
		assert.Equal(t, "17:00:00", w.EndClock())
	})

	t.Run("missing weekday entry is fatal", func(t *testing.T) {
		broken := &models.UserPreference{
			UserID:     "u2",
			StartTimes: []models.DayTime{{Day: 1, Hour: 9}},
			EndTimes:   []models.DayTime{{Day: 1, Hour: 17}},
		}
		_, err := ForInternal(broken, 2)
		assert.ErrorIs(t, err, ErrNoPreferenceForDay)
	})
}

func TestForExternal(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-04 is a Monday.
	event := func(start, end time.Time) models.CalendarEvent {
		return models.CalendarEvent{StartDate: start, EndDate: end, Timezone: "America/New_York"}
	}

	t.Run("envelope from earliest start and latest end", func(t *testing.T) {
		events := []models.CalendarEvent{
			event(time.Date(2024, 3, 4, 10, 15, 0, 0, ny), time.Date(2024, 3, 4, 11, 30, 0, 0, ny)),
			event(time.Date(2024, 3, 4, 9, 30, 0, 0, ny), time.Date(2024, 3, 4, 10, 0, 0, 0, ny)),
		}
		w, ok, err := ForExternal(events, 1, "America/New_York")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 9, w.StartHour)
		assert.Equal(t, 30, w.StartMinute)
		assert.Equal(t, 11, w.EndHour)
		assert.Equal(t, 30, w.EndMinute)
	})

	t.Run("end on the hour is bumped a full hour", func(t *testing.T) {
		events := []models.CalendarEvent{
			event(time.Date(2024, 3, 4, 9, 0, 0, 0, ny), time.Date(2024, 3, 4, 17, 0, 0, 0, ny)),
		}
		w, ok, err := ForExternal(events, 1, "America/New_York")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 18, w.EndHour)
		assert.Equal(t, 0, w.EndMinute)
	})

	t.Run("seconds are ceiled to the minute", func(t *testing.T) {
		events := []models.CalendarEvent{
			event(time.Date(2024, 3, 4, 9, 0, 0, 0, ny), time.Date(2024, 3, 4, 16, 44, 30, 0, ny)),
		}
		w, ok, err := ForExternal(events, 1, "America/New_York")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 16, w.EndHour)
		assert.Equal(t, 45, w.EndMinute)
	})

	t.Run("no events on the weekday means no window", func(t *testing.T) {
		events := []models.CalendarEvent{
			event(time.Date(2024, 3, 4, 9, 0, 0, 0, ny), time.Date(2024, 3, 4, 10, 0, 0, 0, ny)),
		}
		_, ok, err := ForExternal(events, 3, "America/New_York")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestWorkTimes(t *testing.T) {
	pref := fullWeekPreference()
	wts, err := WorkTimes(pref, "host-1", "u1")
	require.NoError(t, err)
	require.Len(t, wts, 7)
	assert.Equal(t, "MONDAY", wts[0].DayOfWeek)
	assert.Equal(t, "SUNDAY", wts[6].DayOfWeek)
	for _, wt := range wts {
		assert.Equal(t, "09:00:00", wt.StartTime)
		assert.Equal(t, "17:00:00", wt.EndTime)
		assert.Equal(t, "host-1", wt.HostID)
		assert.Equal(t, "u1", wt.UserID)
	}
}

func TestExternalWorkTimes(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	events := []models.CalendarEvent{
		{StartDate: time.Date(2024, 3, 4, 9, 0, 0, 0, ny), EndDate: time.Date(2024, 3, 4, 10, 30, 0, 0, ny)},
		{StartDate: time.Date(2024, 3, 6, 13, 0, 0, 0, ny), EndDate: time.Date(2024, 3, 6, 14, 15, 0, 0, ny)},
	}
	wts, err := ExternalWorkTimes(events, "America/New_York", "host-1", "ext-1")
	require.NoError(t, err)
	require.Len(t, wts, 2)
	assert.Equal(t, "MONDAY", wts[0].DayOfWeek)
	assert.Equal(t, "WEDNESDAY", wts[1].DayOfWeek)
}
