// Package planner orchestrates the preparation pipeline: working-hours
// resolution, break synthesis, slot generation, event partitioning and
// buffer weaving across the host, internal-attendee and
// external-attendee branches, feeding the request assembler.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rush86999/atomic-sub002/internal/assembler"
	"github.com/rush86999/atomic-sub002/internal/breaks"
	"github.com/rush86999/atomic-sub002/internal/buffers"
	"github.com/rush86999/atomic-sub002/internal/metrics"
	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/partition"
	"github.com/rush86999/atomic-sub002/internal/recurrence"
	"github.com/rush86999/atomic-sub002/internal/timeslots"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
	"github.com/rush86999/atomic-sub002/internal/workhours"
)

// Config holds pipeline settings.
type Config struct {
	// Granularity is the slot/part length in minutes (15 or 30).
	Granularity int

	// MaxConcurrentAttendees bounds the per-attendee fan-out inside
	// each branch. Default: 8.
	MaxConcurrentAttendees int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Granularity:            timeslots.DefaultGranularity,
		MaxConcurrentAttendees: 8,
	}
}

// Attendee identifies one participant of the planning run.
type Attendee struct {
	UserID   string
	Timezone string
}

// Request describes one planning run.
type Request struct {
	HostID       string
	HostTimezone string
	WindowStart  time.Time
	WindowEnd    time.Time

	InternalAttendees []Attendee
	ExternalAttendees []Attendee
}

// Planner runs the preparation pipeline.
type Planner struct {
	cfg       *Config
	store     EventStore
	assembler *assembler.Assembler
	slots     *timeslots.Generator
	breaks    *breaks.Generator
	logger    *zerolog.Logger
}

// New creates a planner.
func New(cfg *Config, store EventStore, asm *assembler.Assembler, logger *zerolog.Logger) *Planner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Granularity == 0 {
		cfg.Granularity = timeslots.DefaultGranularity
	}
	if cfg.MaxConcurrentAttendees == 0 {
		cfg.MaxConcurrentAttendees = 8
	}
	return &Planner{
		cfg:       cfg,
		store:     store,
		assembler: asm,
		slots:     timeslots.NewGenerator(cfg.Granularity),
		breaks:    breaks.NewGenerator(logger),
		logger:    logger,
	}
}

// Plan runs the three branches concurrently, merges their outputs and
// dispatches the payload. Fatal configuration errors abort the run;
// empty branches (for example no external attendees) simply contribute
// nothing.
func (p *Planner) Plan(ctx context.Context, req Request) (*models.PlannerPayload, error) {
	if err := p.validate(req); err != nil {
		metrics.IncPlanStarted("invalid")
		return nil, err
	}

	host := Attendee{UserID: req.HostID, Timezone: req.HostTimezone}
	// The host branch already covers the host; listing them as an
	// attendee too would regenerate breaks and buffers under fresh ids
	// that escape the canonical-key dedup.
	internal := withoutHost(req.InternalAttendees, req.HostID)
	external := withoutHost(req.ExternalAttendees, req.HostID)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		branches = make([]assembler.BranchResult, 0, 3)
		firstErr error
	)
	collect := func(b assembler.BranchResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		branches = append(branches, b)
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		b, err := p.internalBranch(ctx, req, []Attendee{host})
		collect(b, err)
	}()
	go func() {
		defer wg.Done()
		b, err := p.internalBranch(ctx, req, internal)
		collect(b, err)
	}()
	go func() {
		defer wg.Done()
		b, err := p.externalBranch(ctx, req, external)
		collect(b, err)
	}()
	wg.Wait()

	if firstErr != nil {
		metrics.IncPlanStarted("error")
		return nil, firstErr
	}

	payload, err := p.assembler.Assemble(ctx, req.HostID, req.HostTimezone, req.WindowStart, req.WindowEnd, branches...)
	if err != nil {
		metrics.IncPlanStarted("error")
		return nil, err
	}

	metrics.IncPlanStarted("ok")
	metrics.AddEventParts(len(payload.EventParts))
	metrics.AddTimeslots(len(payload.Timeslots))
	return payload, nil
}

func withoutHost(attendees []Attendee, hostID string) []Attendee {
	out := make([]Attendee, 0, len(attendees))
	for _, a := range attendees {
		if a.UserID == hostID {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (p *Planner) validate(req Request) error {
	if req.HostID == "" {
		return errors.New("planner: host id is required")
	}
	if _, err := timeutil.LoadLocation(req.HostTimezone); err != nil {
		return err
	}
	if !req.WindowEnd.After(req.WindowStart) {
		return fmt.Errorf("planner: empty planning window %s..%s", req.WindowStart, req.WindowEnd)
	}
	return nil
}

// internalBranch runs the pipeline for attendees with stored
// preferences. Per-attendee work is independent and fanned out behind a
// bounded semaphore; correctness relies only on dedup by value in the
// assembler, not on arrival order.
func (p *Planner) internalBranch(ctx context.Context, req Request, attendees []Attendee) (assembler.BranchResult, error) {
	return p.fanOut(attendees, func(a Attendee) (assembler.BranchResult, error) {
		return p.processInternal(ctx, req, a)
	})
}

func (p *Planner) externalBranch(ctx context.Context, req Request, attendees []Attendee) (assembler.BranchResult, error) {
	return p.fanOut(attendees, func(a Attendee) (assembler.BranchResult, error) {
		return p.processExternal(ctx, req, a)
	})
}

func (p *Planner) fanOut(attendees []Attendee, process func(Attendee) (assembler.BranchResult, error)) (assembler.BranchResult, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  []assembler.BranchResult
		firstErr error
	)
	sem := make(chan struct{}, p.cfg.MaxConcurrentAttendees)

	for _, a := range attendees {
		wg.Add(1)
		sem <- struct{}{}
		go func(a Attendee) {
			defer wg.Done()
			defer func() { <-sem }()

			b, err := process(a)
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			results = append(results, b)
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	if firstErr != nil {
		return assembler.BranchResult{}, firstErr
	}
	return assembler.Merge(results...), nil
}

func (p *Planner) processInternal(ctx context.Context, req Request, a Attendee) (assembler.BranchResult, error) {
	var out assembler.BranchResult

	pref, err := p.store.GetPreferences(ctx, a.UserID)
	if err != nil {
		return out, fmt.Errorf("planner: preferences for %s: %w", a.UserID, err)
	}

	events, err := p.store.ListEvents(ctx, a.UserID, req.WindowStart, req.WindowEnd, req.HostTimezone)
	if err != nil {
		return out, fmt.Errorf("planner: events for %s: %w", a.UserID, err)
	}
	concrete, masters, err := recurrence.ExpandAll(events, recurrence.ExpandConfig{
		RangeStart: req.WindowStart,
		RangeEnd:   req.WindowEnd,
	})
	if err != nil {
		return out, err
	}
	out.OldEvents = concrete

	calendarID := ""
	if pref.BreakLength > 0 {
		calendarID, err = p.store.GetPrimaryCalendar(ctx, a.UserID)
		if err != nil {
			return out, fmt.Errorf("planner: primary calendar for %s: %w", a.UserID, err)
		}
		if calendarID == "" {
			return out, fmt.Errorf("%w: user %s", ErrNoPrimaryCalendar, a.UserID)
		}
	}

	workTimes, err := workhours.WorkTimes(pref, req.HostID, a.UserID)
	if err != nil {
		return out, err
	}
	out.Users = []models.UserPlannerParams{{
		ID:                  a.UserID,
		HostID:              req.HostID,
		MaxWorkLoadPercent:  pref.MaxWorkLoadPercent,
		BackToBackMeetings:  pref.BackToBackMeetings,
		MaxNumberOfMeetings: pref.MaxNumberOfMeetings,
		MinNumberOfBreaks:   pref.MinNumberOfBreaks,
		WorkTimes:           workTimes,
		Timezone:            a.Timezone,
	}}

	days, err := p.planningDays(req)
	if err != nil {
		return out, err
	}

	partsByEvent := make(map[string][]models.EventPart)
	var orderedEvents []models.CalendarEvent

	for i, day := range days {
		isFirst := i == 0
		window, err := workhours.ForInternal(pref, timeutil.ISOWeekday(day))
		if err != nil {
			return out, err
		}

		dayEvents, err := p.eventsOn(concrete, day, req.HostTimezone)
		if err != nil {
			return out, err
		}

		generated, err := p.breaks.ForDay(breaks.DayInput{
			Date:         day,
			Window:       window,
			HostTimezone: req.HostTimezone,
			HostID:       req.HostID,
			UserID:       a.UserID,
			CalendarID:   calendarID,
			Preference:   pref,
			Events:       dayEvents,
			IsFirstDay:   isFirst,
		})
		if err != nil {
			return out, err
		}
		if len(generated) > 0 {
			out.Breaks = append(out.Breaks, generated...)
			dayEvents = append(dayEvents, generated...)
			metrics.AddBreaksGenerated(len(generated))
		}

		slots, err := p.slots.ForDay(day, window, req.HostID, req.HostTimezone, isFirst)
		if err != nil {
			return out, err
		}
		out.Timeslots = append(out.Timeslots, slots...)

		for _, ev := range dayEvents {
			if err := partition.Validate(ev, window, req.HostTimezone); err != nil {
				if p.logger != nil {
					p.logger.Debug().Str("event_id", ev.ID).Err(err).Msg("event skipped")
				}
				continue
			}
			partsByEvent[ev.ID] = partition.Partition(ev, p.cfg.Granularity)
			orderedEvents = append(orderedEvents, ev)
		}
	}

	for id, parts := range partsByEvent {
		partsByEvent[id] = partition.BackfillTaskFlags(parts, masters)
	}

	weaver := buffers.NewWeaver(p.cfg.Granularity)
	woven, bundles := weaver.WeaveAll(orderedEvents, partsByEvent, pref)
	out.EventParts = woven
	out.Bundles = bundles
	return out, nil
}

// processExternal infers working windows from the attendee's event
// envelope; there are no stored preferences, so no breaks are generated
// and buffer weaving only honors per-event overrides.
func (p *Planner) processExternal(ctx context.Context, req Request, a Attendee) (assembler.BranchResult, error) {
	var out assembler.BranchResult

	events, err := p.store.ListEvents(ctx, a.UserID, req.WindowStart, req.WindowEnd, req.HostTimezone)
	if err != nil {
		return out, fmt.Errorf("planner: events for %s: %w", a.UserID, err)
	}
	concrete, masters, err := recurrence.ExpandAll(events, recurrence.ExpandConfig{
		RangeStart: req.WindowStart,
		RangeEnd:   req.WindowEnd,
	})
	if err != nil {
		return out, err
	}
	if len(concrete) == 0 {
		// Nothing observable about this attendee; the branch simply
		// contributes nothing.
		return out, nil
	}
	out.OldEvents = concrete

	workTimes, err := workhours.ExternalWorkTimes(concrete, req.HostTimezone, req.HostID, a.UserID)
	if err != nil {
		return out, err
	}
	out.Users = []models.UserPlannerParams{{
		ID:                 a.UserID,
		HostID:             req.HostID,
		MaxWorkLoadPercent: 100,
		BackToBackMeetings: true,
		WorkTimes:          workTimes,
		Timezone:           a.Timezone,
	}}

	days, err := p.planningDays(req)
	if err != nil {
		return out, err
	}

	partsByEvent := make(map[string][]models.EventPart)
	var orderedEvents []models.CalendarEvent

	for i, day := range days {
		isFirst := i == 0
		window, ok, err := workhours.ForExternal(concrete, timeutil.ISOWeekday(day), req.HostTimezone)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}

		dayEvents, err := p.eventsOn(concrete, day, req.HostTimezone)
		if err != nil {
			return out, err
		}

		slots, err := p.slots.ForDay(day, window, req.HostID, req.HostTimezone, isFirst)
		if err != nil {
			return out, err
		}
		out.Timeslots = append(out.Timeslots, slots...)

		for _, ev := range dayEvents {
			if err := partition.Validate(ev, window, req.HostTimezone); err != nil {
				if p.logger != nil {
					p.logger.Debug().Str("event_id", ev.ID).Err(err).Msg("event skipped")
				}
				continue
			}
			partsByEvent[ev.ID] = partition.Partition(ev, p.cfg.Granularity)
			orderedEvents = append(orderedEvents, ev)
		}
	}

	for id, parts := range partsByEvent {
		partsByEvent[id] = partition.BackfillTaskFlags(parts, masters)
	}

	weaver := buffers.NewWeaver(p.cfg.Granularity)
	woven, bundles := weaver.WeaveAll(orderedEvents, partsByEvent, nil)
	out.EventParts = woven
	out.Bundles = bundles
	return out, nil
}

// planningDays returns one instant per host-local day in the window:
// the window's real start for the first day, then local midnights.
func (p *Planner) planningDays(req Request) ([]time.Time, error) {
	start, err := timeutil.InZone(req.WindowStart, req.HostTimezone)
	if err != nil {
		return nil, err
	}
	end, err := timeutil.InZone(req.WindowEnd, req.HostTimezone)
	if err != nil {
		return nil, err
	}

	days := []time.Time{start}
	cursor := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).AddDate(0, 0, 1)
	for !cursor.After(end) {
		days = append(days, cursor)
		cursor = cursor.AddDate(0, 0, 1)
	}
	return days, nil
}

func (p *Planner) eventsOn(events []models.CalendarEvent, day time.Time, hostTimezone string) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	for _, ev := range events {
		same, err := timeutil.SameDay(ev.StartDate, day, hostTimezone)
		if err != nil {
			return nil, err
		}
		if same {
			out = append(out, ev)
		}
	}
	return out, nil
}
