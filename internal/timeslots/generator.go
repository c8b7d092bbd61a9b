// Package timeslots emits the quantized candidate slots covering a
// user's working window for one date.
package timeslots

import (
	"time"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
	"github.com/rush86999/atomic-sub002/internal/workhours"
)

// DefaultGranularity is the slot length in minutes when none is set.
const DefaultGranularity = 30

// Generator produces timeslots at a fixed granularity. Slot clock
// fields are always expressed in host timezone, regardless of which
// timezone the working window was computed from.
type Generator struct {
	granularity int
}

// NewGenerator creates a slot generator; granularity must be 15 or 30,
// anything else falls back to the default.
func NewGenerator(granularityMinutes int) *Generator {
	if granularityMinutes != 15 && granularityMinutes != 30 {
		granularityMinutes = DefaultGranularity
	}
	return &Generator{granularity: granularityMinutes}
}

// Granularity returns the configured slot length in minutes.
func (g *Generator) Granularity() int { return g.granularity }

// ForDay generates the ordered slots tiling the working window on the
// given host-local date. On the first day of a planning window the
// date's wall-clock time matters: a time past work-end yields no slots,
// a time before work-start clamps generation to work-start, and a time
// inside the window starts generation from its quantized minute.
// A degenerate window (end <= start) yields an empty list, not an
// error.
func (g *Generator) ForDay(date time.Time, window workhours.Window, hostID, hostTimezone string, isFirstDay bool) ([]models.TimeSlot, error) {
	day, err := timeutil.InZone(date, hostTimezone)
	if err != nil {
		return nil, err
	}

	windowStart := time.Date(day.Year(), day.Month(), day.Day(),
		window.StartHour, window.StartMinute, 0, 0, day.Location())
	windowEnd := time.Date(day.Year(), day.Month(), day.Day(),
		window.EndHour, window.EndMinute, 0, 0, day.Location())

	genStart := windowStart
	if isFirstDay {
		if day.After(windowEnd) {
			return nil, nil
		}
		if day.After(windowStart) {
			genStart = timeutil.FloorToGrain(day, g.granularity)
		}
	}

	total := timeutil.MinutesBetween(genStart, windowEnd)
	if total <= 0 {
		return nil, nil
	}

	dayName := timeutil.DayName(timeutil.ISOWeekday(day))
	var slots []models.TimeSlot
	for i := 0; i+g.granularity <= total; i += g.granularity {
		slotStart := genStart.Add(time.Duration(i) * time.Minute)
		slotEnd := slotStart.Add(time.Duration(g.granularity) * time.Minute)
		slots = append(slots, models.TimeSlot{
			DayOfWeek: dayName,
			MonthDay:  timeutil.FormatMonthDay(day),
			Date:      timeutil.FormatDate(day),
			StartTime: timeutil.FormatClock(slotStart),
			EndTime:   timeutil.FormatClock(slotEnd),
			HostID:    hostID,
		})
	}
	return slots, nil
}
