// Package workhours resolves a user's working window for a weekday,
// either from stored preferences (internal attendees) or from the
// observed event envelope (external attendees).
package workhours

import (
	"errors"
	"fmt"
	"time"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
)

// ErrNoPreferenceForDay means a user's preference set is missing the
// entry for a weekday. Malformed preference data is not recoverable
// locally, so the planning run aborts on it.
var ErrNoPreferenceForDay = errors.New("workhours: no preference entry for weekday")

// Window is a working window expressed as host-timezone wall clock.
type Window struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// StartMinutes returns the window start as minutes since midnight.
func (w Window) StartMinutes() int { return w.StartHour*60 + w.StartMinute }

// EndMinutes returns the window end as minutes since midnight.
func (w Window) EndMinutes() int { return w.EndHour*60 + w.EndMinute }

// TotalMinutes returns the window length; degenerate windows yield <= 0.
func (w Window) TotalMinutes() int { return w.EndMinutes() - w.StartMinutes() }

// WorkingHours returns the window length as fractional hours, used for
// workload calculations.
func (w Window) WorkingHours() float64 {
	return float64(w.EndMinutes()-w.StartMinutes()) / 60
}

// StartClock renders the window start as HH:mm:ss.
func (w Window) StartClock() string {
	return fmt.Sprintf("%02d:%02d:00", w.StartHour, w.StartMinute)
}

// EndClock renders the window end as HH:mm:ss.
func (w Window) EndClock() string {
	return fmt.Sprintf("%02d:%02d:00", w.EndHour, w.EndMinute)
}

// ForInternal looks up the weekday-indexed working window in the user's
// preferences. A missing entry is fatal for the planning run.
func ForInternal(pref *models.UserPreference, isoWeekday int) (Window, error) {
	start, ok := pref.StartFor(isoWeekday)
	if !ok {
		return Window{}, fmt.Errorf("%w: user %s start day %d", ErrNoPreferenceForDay, pref.UserID, isoWeekday)
	}
	end, ok := pref.EndFor(isoWeekday)
	if !ok {
		return Window{}, fmt.Errorf("%w: user %s end day %d", ErrNoPreferenceForDay, pref.UserID, isoWeekday)
	}
	return Window{
		StartHour:   start.Hour,
		StartMinute: start.Minute,
		EndHour:     end.Hour,
		EndMinute:   end.Minute,
	}, nil
}

// ForExternal infers a working window from the attendee's events that
// fall on the target ISO weekday in host timezone: the start is the
// minute-floored start of the earliest event, the end is the
// minute-ceiled end of the latest event, bumped a full hour when the
// minute remainder lands exactly on 0 so the window never collapses to
// zero width. ok is false when the attendee has no events that weekday;
// the caller must skip the day.
func ForExternal(events []models.CalendarEvent, isoWeekday int, hostTimezone string) (Window, bool, error) {
	var earliest, latest time.Time
	found := false

	for _, ev := range events {
		start, err := timeutil.InZone(ev.StartDate, hostTimezone)
		if err != nil {
			return Window{}, false, err
		}
		if timeutil.ISOWeekday(start) != isoWeekday {
			continue
		}
		end, err := timeutil.InZone(ev.EndDate, hostTimezone)
		if err != nil {
			return Window{}, false, err
		}
		if !found || start.Before(earliest) {
			earliest = start
		}
		if !found || end.After(latest) {
			latest = end
		}
		found = true
	}
	if !found {
		return Window{}, false, nil
	}

	endHour, endMinute := latest.Hour(), latest.Minute()
	if latest.Second() > 0 || latest.Nanosecond() > 0 {
		endMinute++
		if endMinute == 60 {
			endMinute = 0
			endHour++
		}
	}
	if endMinute == 0 {
		endHour++
	}

	return Window{
		StartHour:   earliest.Hour(),
		StartMinute: earliest.Minute(),
		EndHour:     endHour,
		EndMinute:   endMinute,
	}, true, nil
}

// WorkTimes expands a preference set into the seven WorkTime rows sent
// to the solver, in host-timezone wall clock.
func WorkTimes(pref *models.UserPreference, hostID, userID string) ([]models.WorkTime, error) {
	out := make([]models.WorkTime, 0, 7)
	for day := 1; day <= 7; day++ {
		w, err := ForInternal(pref, day)
		if err != nil {
			return nil, err
		}
		out = append(out, models.WorkTime{
			DayOfWeek: timeutil.DayName(day),
			StartTime: w.StartClock(),
			EndTime:   w.EndClock(),
			HostID:    hostID,
			UserID:    userID,
		})
	}
	return out, nil
}

// ExternalWorkTimes builds WorkTime rows for an external attendee from
// the weekdays where an event envelope exists. Weekdays without events
// are omitted.
func ExternalWorkTimes(events []models.CalendarEvent, hostTimezone, hostID, userID string) ([]models.WorkTime, error) {
	var out []models.WorkTime
	for day := 1; day <= 7; day++ {
		w, ok, err := ForExternal(events, day, hostTimezone)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, models.WorkTime{
			DayOfWeek: timeutil.DayName(day),
			StartTime: w.StartClock(),
			EndTime:   w.EndClock(),
			HostID:    hostID,
			UserID:    userID,
		})
	}
	return out, nil
}
