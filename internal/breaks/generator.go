// Package breaks decides whether a day needs synthetic break events and
// places them into free space inside the working window.
package breaks

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
	"github.com/rush86999/atomic-sub002/internal/workhours"
)

// MaxDailyBreakHours is the hard cap on one day's break budget.
const MaxDailyBreakHours = 6.0

// Generator synthesizes break events for one (user, day) pair.
type Generator struct {
	logger *zerolog.Logger
}

// NewGenerator creates a break generator.
func NewGenerator(logger *zerolog.Logger) *Generator {
	return &Generator{logger: logger}
}

// DayInput carries everything needed to generate breaks for one day.
// Events must already be the day's events in host timezone; Date is the
// host-local instant for that day (on the first day it carries the real
// wall-clock start of the planning window).
type DayInput struct {
	Date         time.Time
	Window       workhours.Window
	HostTimezone string
	HostID       string
	UserID       string
	CalendarID   string
	Preference   *models.UserPreference
	Events       []models.CalendarEvent
	IsFirstDay   bool
}

// ShouldGenerateBreaks is the decision gate: false when breaks are
// disabled, the day has no events, or existing breaks already meet the
// larger of the count-driven and workload-driven rest budgets.
func ShouldGenerateBreaks(workingHours float64, pref *models.UserPreference, dayEvents []models.CalendarEvent) bool {
	if pref == nil || pref.BreakLength <= 0 {
		return false
	}
	if len(dayEvents) == 0 {
		return false
	}

	existingBreakMinutes := 0
	for _, ev := range dayEvents {
		if ev.IsBreak {
			existingBreakMinutes += timeutil.MinutesBetween(ev.StartDate, ev.EndDate)
		}
	}
	requiredMinutes := math.Max(
		float64(pref.MinNumberOfBreaks*pref.BreakLength),
		workingHours*(1-float64(pref.MaxWorkLoadPercent)/100)*60,
	)
	return float64(existingBreakMinutes) < requiredMinutes
}

// ForDay synthesizes the day's break events. An empty result means no
// breaks are warranted; fewer breaks than requested means the free
// space ran out, which the caller must not treat as an error.
func (g *Generator) ForDay(in DayInput) ([]models.CalendarEvent, error) {
	day, err := timeutil.InZone(in.Date, in.HostTimezone)
	if err != nil {
		return nil, err
	}

	workingHours := in.Window.WorkingHours()
	if workingHours <= 0 {
		return nil, nil
	}
	if !ShouldGenerateBreaks(workingHours, in.Preference, in.Events) {
		return nil, nil
	}

	breakLen := in.Preference.BreakLength
	breakLenHours := float64(breakLen) / 60

	busyMinutes, usedBreakMinutes := 0, 0
	for _, ev := range in.Events {
		minutes := timeutil.MinutesBetween(ev.StartDate, ev.EndDate)
		if ev.IsBreak {
			usedBreakMinutes += minutes
		} else {
			busyMinutes += minutes
		}
	}

	hoursAvailable := workingHours - float64(busyMinutes)/60
	if hoursAvailable <= 0 {
		return nil, nil
	}

	hoursMustBeBreak := math.Max(
		float64(in.Preference.MinNumberOfBreaks)*breakLenHours,
		workingHours*(1-float64(in.Preference.MaxWorkLoadPercent)/100),
	)
	if hoursMustBeBreak > MaxDailyBreakHours {
		return nil, nil
	}
	breakHoursToGenerate := math.Min(hoursAvailable, hoursMustBeBreak)

	count := int(math.Floor((breakHoursToGenerate - float64(usedBreakMinutes)/60) / breakLenHours))
	if count < 1 {
		return nil, nil
	}

	windowStart := time.Date(day.Year(), day.Month(), day.Day(),
		in.Window.StartHour, in.Window.StartMinute, 0, 0, day.Location())
	windowEnd := time.Date(day.Year(), day.Month(), day.Day(),
		in.Window.EndHour, in.Window.EndMinute, 0, 0, day.Location())

	// The first day must not receive a break before the planning
	// window's actual start instant.
	effectiveStart := windowStart
	if in.IsFirstDay && day.After(windowStart) {
		effectiveStart = day
	}

	placed := g.place(in, count, effectiveStart, windowEnd, day.Location())
	if g.logger != nil && len(placed) < count {
		g.logger.Debug().
			Str("user_id", in.UserID).
			Str("date", timeutil.FormatDate(day)).
			Int("requested", count).
			Int("placed", len(placed)).
			Msg("fewer breaks fit than requested")
	}
	return placed, nil
}

func (g *Generator) place(in DayInput, count int, effectiveStart, windowEnd time.Time, loc *time.Location) []models.CalendarEvent {
	breakLen := time.Duration(in.Preference.BreakLength) * time.Minute

	busy := make([]models.CalendarEvent, 0, len(in.Events))
	for _, ev := range in.Events {
		if !ev.IsBreak {
			busy = append(busy, ev)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].StartDate.Before(busy[j].StartDate) })

	var placed []models.CalendarEvent
	for n := 0; n < count; n++ {
		// Candidate starts: the window start, a slot ending at each
		// event's start, and the end of every busy interval placed so
		// far.
		candidates := []time.Time{effectiveStart}
		for _, ev := range busy {
			candidates = append(candidates, ev.StartDate.In(loc).Add(-breakLen), ev.EndDate.In(loc))
		}
		for _, br := range placed {
			candidates = append(candidates, br.EndDate)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

		found := false
		for _, start := range candidates {
			end := start.Add(breakLen)
			if start.Before(effectiveStart) || end.After(windowEnd) {
				continue
			}
			if overlapsAny(start, end, busy) || overlapsAny(start, end, placed) {
				continue
			}
			placed = append(placed, g.newBreak(in, start, end))
			found = true
			break
		}
		if !found {
			break
		}
	}
	return placed
}

func (g *Generator) newBreak(in DayInput, start, end time.Time) models.CalendarEvent {
	id := uuid.New().String()
	return models.CalendarEvent{
		ID:         id,
		EventID:    id,
		UserID:     in.UserID,
		HostID:     in.HostID,
		CalendarID: in.CalendarID,
		StartDate:  start,
		EndDate:    end,
		Timezone:   in.HostTimezone,
		Duration:   in.Preference.BreakLength,
		IsBreak:    true,
		Modifiable: true,
		Priority:   1,
	}
}

func overlapsAny(start, end time.Time, events []models.CalendarEvent) bool {
	for _, ev := range events {
		if start.Before(ev.EndDate) && ev.StartDate.Before(end) {
			return true
		}
	}
	return false
}
