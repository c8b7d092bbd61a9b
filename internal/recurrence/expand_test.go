package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rush86999/atomic-sub002/internal/models"
)

func TestExpandDailyRule(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	master := models.CalendarEvent{
		ID:         "master-1",
		UserID:     "u1",
		StartDate:  start,
		EndDate:    start.Add(30 * time.Minute),
		Timezone:   "UTC",
		Recurrence: "FREQ=DAILY;COUNT=10",
	}

	cfg := ExpandConfig{
		RangeStart: start,
		RangeEnd:   start.AddDate(0, 0, 2),
	}
	instances, err := Expand(master, cfg)
	require.NoError(t, err)
	require.Len(t, instances, 3)

	for i, in := range instances {
		assert.Equal(t, "master-1", in.RecurringEventID)
		assert.Equal(t, "master-1", in.EventID)
		assert.NotEqual(t, master.ID, in.ID)
		assert.Empty(t, in.Recurrence)
		assert.Equal(t, 30*time.Minute, in.EndDate.Sub(in.StartDate))
		wantStart := start.AddDate(0, 0, i)
		assert.True(t, in.StartDate.Equal(wantStart), "instance %d start %s", i, in.StartDate)
	}
}

func TestExpandOccurrenceCap(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	master := models.CalendarEvent{
		ID:         "master-1",
		StartDate:  start,
		EndDate:    start.Add(time.Hour),
		Recurrence: "FREQ=DAILY",
	}

	instances, err := Expand(master, ExpandConfig{
		RangeStart:     start,
		RangeEnd:       start.AddDate(1, 0, 0),
		MaxOccurrences: 5,
	})
	require.NoError(t, err)
	assert.Len(t, instances, 5)
}

func TestExpandBadRule(t *testing.T) {
	master := models.CalendarEvent{ID: "master-1", Recurrence: "FREQ=NOPE"}
	_, err := Expand(master, ExpandConfig{})
	assert.Error(t, err)
}

func TestExpandAll(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	plain := models.CalendarEvent{ID: "plain-1", StartDate: start, EndDate: start.Add(time.Hour)}
	master := models.CalendarEvent{
		ID:            "master-1",
		StartDate:     start,
		EndDate:       start.Add(time.Hour),
		Recurrence:    "FREQ=DAILY;COUNT=2",
		DailyTaskList: true,
	}

	concrete, masters, err := ExpandAll([]models.CalendarEvent{plain, master}, ExpandConfig{
		RangeStart: start,
		RangeEnd:   start.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Len(t, concrete, 3)
	require.Contains(t, masters, "master-1")
	assert.True(t, masters["master-1"].DailyTaskList)
}
