// Package recurrence expands recurring master events into dated
// instances inside a planning window.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/rush86999/atomic-sub002/internal/models"
)

// DefaultMaxOccurrences caps expansion per master event so a malformed
// rule cannot flood a planning run.
const DefaultMaxOccurrences = 500

// ExpandConfig bounds the expansion.
type ExpandConfig struct {
	RangeStart     time.Time
	RangeEnd       time.Time
	MaxOccurrences int
}

// Expand turns one recurring master event into concrete instances
// within the window. Each instance is stamped with recurringEventId so
// partitioning can backfill task flags from the master later.
func Expand(master models.CalendarEvent, cfg ExpandConfig) ([]models.CalendarEvent, error) {
	if master.Recurrence == "" {
		return nil, nil
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = DefaultMaxOccurrences
	}

	rule, err := rrule.StrToRRule(master.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("recurrence: parse rule for event %s: %w", master.ID, err)
	}
	rule.DTStart(master.StartDate)

	duration := master.EndDate.Sub(master.StartDate)
	occurrences := rule.Between(cfg.RangeStart, cfg.RangeEnd, true)
	if len(occurrences) > cfg.MaxOccurrences {
		occurrences = occurrences[:cfg.MaxOccurrences]
	}

	instances := make([]models.CalendarEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		instance := master
		instance.ID = fmt.Sprintf("%s#%s", master.ID, occ.Format("20060102T150405"))
		instance.EventID = master.ID
		instance.RecurringEventID = master.ID
		instance.StartDate = occ
		instance.EndDate = occ.Add(duration)
		instance.Recurrence = ""
		instances = append(instances, instance)
	}
	return instances, nil
}

// ExpandAll splits a raw event list into concrete events (plain events
// plus expanded recurring instances inside the window) and the map of
// master events keyed by id, used for task-flag backfill.
func ExpandAll(events []models.CalendarEvent, cfg ExpandConfig) ([]models.CalendarEvent, map[string]models.CalendarEvent, error) {
	var concrete []models.CalendarEvent
	masters := make(map[string]models.CalendarEvent)

	for _, ev := range events {
		if ev.Recurrence == "" {
			concrete = append(concrete, ev)
			continue
		}
		masters[ev.ID] = ev
		instances, err := Expand(ev, cfg)
		if err != nil {
			return nil, nil, err
		}
		concrete = append(concrete, instances...)
	}
	return concrete, masters, nil
}
