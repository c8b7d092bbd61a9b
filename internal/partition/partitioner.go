// Package partition slices validated calendar events into the
// fixed-size fragments the solver places onto timeslots.
package partition

import (
	"errors"
	"fmt"
	"time"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
	"github.com/rush86999/atomic-sub002/internal/workhours"
)

// ErrUnpartitionable marks an event that fails pre-partition
// validation. Callers skip such events; the error exists so the reason
// can be logged.
var ErrUnpartitionable = errors.New("partition: event not partitionable")

// Validate checks that an event qualifies for partitioning: it carries
// a timezone, has a positive duration under 24 hours, and starts inside
// the attendee's working window for its weekday in host timezone.
func Validate(ev models.CalendarEvent, window workhours.Window, hostTimezone string) error {
	if ev.Timezone == "" {
		return fmt.Errorf("%w: event %s has no timezone", ErrUnpartitionable, ev.ID)
	}
	minutes := timeutil.MinutesBetween(ev.StartDate, ev.EndDate)
	if minutes <= 0 {
		return fmt.Errorf("%w: event %s has non-positive duration", ErrUnpartitionable, ev.ID)
	}
	if minutes >= 24*60 {
		return fmt.Errorf("%w: event %s spans %d minutes", ErrUnpartitionable, ev.ID, minutes)
	}

	start, err := timeutil.InZone(ev.StartDate, hostTimezone)
	if err != nil {
		return fmt.Errorf("%w: event %s: %v", ErrUnpartitionable, ev.ID, err)
	}
	startMinutes := start.Hour()*60 + start.Minute()
	if startMinutes < window.StartMinutes() || startMinutes >= window.EndMinutes() {
		return fmt.Errorf("%w: event %s starts outside the work window", ErrUnpartitionable, ev.ID)
	}
	return nil
}

// Partition slices an event into ordered parts of granularity minutes
// plus one short remainder part when the duration does not divide
// evenly. Every part copies the event's fields; part boundaries carry
// the fragment's own start/end so durations sum back to the original.
func Partition(ev models.CalendarEvent, granularityMinutes int) []models.EventPart {
	minutes := timeutil.MinutesBetween(ev.StartDate, ev.EndDate)
	if minutes <= 0 || granularityMinutes <= 0 {
		return nil
	}

	full := minutes / granularityMinutes
	remainder := minutes % granularityMinutes
	last := full
	if remainder > 0 {
		last++
	}

	parts := make([]models.EventPart, 0, last)
	cursor := ev.StartDate
	for i := 1; i <= last; i++ {
		length := granularityMinutes
		if i == last && remainder > 0 {
			length = remainder
		}
		partEnd := cursor.Add(time.Duration(length) * time.Minute)

		part := models.EventPart{
			CalendarEvent: ev,
			GroupID:       ev.ID,
			EventID:       ev.ID,
			Part:          i,
			LastPart:      last,
		}
		part.StartDate = cursor
		part.EndDate = partEnd
		part.Duration = length
		if ev.IsMeeting {
			part.MeetingPart = i
			part.MeetingLastPart = last
		}
		parts = append(parts, part)
		cursor = partEnd
	}
	return parts
}

// BackfillTaskFlags copies the daily/weekly task-list flags from the
// original recurring event onto parts of its instances, which do not
// inherit those flags automatically.
func BackfillTaskFlags(parts []models.EventPart, mastersByID map[string]models.CalendarEvent) []models.EventPart {
	for i := range parts {
		rid := parts[i].RecurringEventID
		if rid == "" {
			continue
		}
		master, ok := mastersByID[rid]
		if !ok {
			continue
		}
		parts[i].DailyTaskList = master.DailyTaskList
		parts[i].WeeklyTaskList = master.WeeklyTaskList
	}
	return parts
}
