// Package buffers synthesizes pre-/post-event buffer fragments and
// renumbers event parts so buffers sit adjacent to their owning event.
package buffers

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/partition"
)

// Spec is the resolved (before, after) buffer minutes for one event.
type Spec struct {
	BeforeMinutes int
	AfterMinutes  int
}

// Empty reports whether the spec requests no buffers at all.
func (s Spec) Empty() bool { return s.BeforeMinutes <= 0 && s.AfterMinutes <= 0 }

// ResolveSpec applies the buffer precedence policy: an explicit
// per-event override wins, otherwise the user's defaults apply to
// meetings only.
func ResolveSpec(ev models.CalendarEvent, pref *models.UserPreference) Spec {
	spec := Spec{BeforeMinutes: ev.BeforeEventMinutes, AfterMinutes: ev.AfterEventMinutes}
	if !spec.Empty() {
		return spec
	}
	if pref != nil && ev.IsMeeting {
		return Spec{BeforeMinutes: pref.BeforeEventMinutes, AfterMinutes: pref.AfterEventMinutes}
	}
	return Spec{}
}

// Weaver weaves buffer groups onto partitioned events. One weaver
// instance covers one planning run; it remembers which origin events
// already received buffers so revisits do not duplicate them.
type Weaver struct {
	granularity int
	seen        map[string]bool
}

// NewWeaver creates a weaver cutting buffers at the given granularity.
func NewWeaver(granularityMinutes int) *Weaver {
	return &Weaver{granularity: granularityMinutes, seen: make(map[string]bool)}
}

// Weave attaches the requested buffers to one event's parts, returning
// the bundle (buffer events plus the updated owning event) and the
// renumbered part list for the whole group. Events already woven in
// this run, or with nothing to weave, come back unchanged with a bundle
// holding only the event itself.
func (w *Weaver) Weave(ev models.CalendarEvent, parts []models.EventPart, spec Spec) (models.BufferTimeBundle, []models.EventPart) {
	bundle := models.BufferTimeBundle{NewEvent: ev}
	if w.seen[ev.ID] || spec.Empty() || len(parts) == 0 {
		return bundle, parts
	}
	w.seen[ev.ID] = true

	group := append([]models.EventPart(nil), parts...)
	sort.Slice(group, func(i, j int) bool { return group[i].Part < group[j].Part })

	hasBefore := false

	// A pre-existing buffer reference means a prior run already created
	// one; this run only updates numbering around it, never duplicates.
	if spec.BeforeMinutes > 0 && ev.PreEventID == "" {
		buffer := w.newBuffer(ev, ev.StartDate.Add(-time.Duration(spec.BeforeMinutes)*time.Minute), ev.StartDate, spec.BeforeMinutes, true)
		bufferParts := partition.Partition(buffer, w.granularity)
		group = append(bufferParts, group...)
		group = renumber(group, uuid.New().String())
		bundle.BeforeEvent = &buffer
		bundle.NewEvent.PreEventID = buffer.ID
		hasBefore = true
	}

	if spec.AfterMinutes > 0 && ev.PostEventID == "" {
		buffer := w.newBuffer(ev, ev.EndDate, ev.EndDate.Add(time.Duration(spec.AfterMinutes)*time.Minute), spec.AfterMinutes, false)
		bufferParts := partition.Partition(buffer, w.granularity)

		if hasBefore || ev.PreEventID != "" {
			// The group's numbering is already in place, either from the
			// renumber above or from a prior run that created the
			// before-buffer; append the after-parts under the group's
			// existing id and bump lastPart rather than renumbering from
			// scratch.
			offset := len(group)
			for i := range bufferParts {
				bufferParts[i].GroupID = group[0].GroupID
				bufferParts[i].Part = offset + i + 1
			}
			group = append(group, bufferParts...)
			total := len(group)
			for i := range group {
				group[i].LastPart = total
				if group[i].IsMeeting {
					group[i].MeetingLastPart = total
				}
			}
		} else {
			group = append(group, bufferParts...)
			group = renumber(group, uuid.New().String())
		}
		bundle.AfterEvent = &buffer
		bundle.NewEvent.PostEventID = buffer.ID
	}

	return bundle, group
}

// WeaveAll runs the weaver over a batch of events, deduplicating by
// origin event id, and returns the flattened part list plus the bundles
// for events that received at least one buffer.
func (w *Weaver) WeaveAll(events []models.CalendarEvent, partsByEventID map[string][]models.EventPart, pref *models.UserPreference) ([]models.EventPart, []models.BufferTimeBundle) {
	var out []models.EventPart
	var bundles []models.BufferTimeBundle
	for _, ev := range events {
		bundle, group := w.Weave(ev, partsByEventID[ev.ID], ResolveSpec(ev, pref))
		out = append(out, group...)
		if bundle.BeforeEvent != nil || bundle.AfterEvent != nil {
			bundles = append(bundles, bundle)
		}
	}
	return out, bundles
}

func (w *Weaver) newBuffer(owner models.CalendarEvent, start, end time.Time, minutes int, pre bool) models.CalendarEvent {
	id := uuid.New().String()
	return models.CalendarEvent{
		ID:          id,
		EventID:     id,
		UserID:      owner.UserID,
		HostID:      owner.HostID,
		CalendarID:  owner.CalendarID,
		StartDate:   start,
		EndDate:     end,
		Timezone:    owner.Timezone,
		Duration:    minutes,
		IsPreEvent:  pre,
		IsPostEvent: !pre,
		ForEventID:  owner.ID,
		Modifiable:  true,
	}
}

func renumber(group []models.EventPart, groupID string) []models.EventPart {
	total := len(group)
	for i := range group {
		group[i].GroupID = groupID
		group[i].Part = i + 1
		group[i].LastPart = total
		if group[i].IsMeeting {
			group[i].MeetingPart = i + 1
			group[i].MeetingLastPart = total
		}
	}
	return group
}
