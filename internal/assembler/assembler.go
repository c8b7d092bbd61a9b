// Package assembler merges the host, internal-attendee and
// external-attendee branch outputs into one deduplicated solver
// payload, archives it and dispatches it.
package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rush86999/atomic-sub002/internal/metrics"
	"github.com/rush86999/atomic-sub002/internal/models"
)

// Fatal payload invariants. A degenerate problem is never submitted to
// the solver.
var (
	ErrNoEventParts = errors.New("assembler: event parts list is empty")
	ErrNoTimeslots  = errors.New("assembler: timeslot list is empty")
	ErrNoUsers      = errors.New("assembler: user list is empty")
)

// BlobArchive stores the assembled payload for audit before dispatch.
type BlobArchive interface {
	Put(ctx context.Context, key string, data []byte) error
}

// SolverDispatcher hands the payload to the constraint solver. The
// solver answers asynchronously through the callback URL, so no result
// flows back here.
type SolverDispatcher interface {
	Solve(ctx context.Context, payload *models.PlannerPayload) error
}

// BranchResult is the output of one pipeline branch.
type BranchResult struct {
	EventParts []models.EventPart
	Timeslots  []models.TimeSlot
	Users      []models.UserPlannerParams
	Breaks     []models.CalendarEvent
	Bundles    []models.BufferTimeBundle
	OldEvents  []models.CalendarEvent
}

// Config holds assembler settings.
type Config struct {
	CallbackURL string

	// Solving-time budgets; the short one applies to planning windows
	// under two days.
	ShortSolveMillis int64
	LongSolveMillis  int64
}

// DefaultConfig returns sensible budget defaults.
func DefaultConfig() Config {
	return Config{
		ShortSolveMillis: 2 * 60 * 1000,
		LongSolveMillis:  5 * 60 * 1000,
	}
}

// Assembler builds and dispatches planner payloads.
type Assembler struct {
	cfg     Config
	archive BlobArchive
	solver  SolverDispatcher
	logger  *zerolog.Logger
}

// New creates an assembler. Zero budget values are backfilled from
// DefaultConfig.
func New(cfg Config, archive BlobArchive, solver SolverDispatcher, logger *zerolog.Logger) *Assembler {
	def := DefaultConfig()
	if cfg.ShortSolveMillis == 0 {
		cfg.ShortSolveMillis = def.ShortSolveMillis
	}
	if cfg.LongSolveMillis == 0 {
		cfg.LongSolveMillis = def.LongSolveMillis
	}
	return &Assembler{cfg: cfg, archive: archive, solver: solver, logger: logger}
}

// Assemble merges the branches, enforces the non-empty invariants,
// archives the snapshot under {hostId}/{singletonId}.json and
// dispatches the payload. The archive write and dispatch happen only
// after validation passes.
func (a *Assembler) Assemble(ctx context.Context, hostID, hostTimezone string, windowStart, windowEnd time.Time, branches ...BranchResult) (*models.PlannerPayload, error) {
	merged := Merge(branches...)

	if len(merged.EventParts) == 0 {
		return nil, ErrNoEventParts
	}
	if len(merged.Timeslots) == 0 {
		return nil, ErrNoTimeslots
	}
	if len(merged.Users) == 0 {
		return nil, ErrNoUsers
	}

	singletonID := uuid.New().String()
	fileKey := fmt.Sprintf("%s/%s.json", hostID, singletonID)

	payload := &models.PlannerPayload{
		SingletonID: singletonID,
		HostID:      hostID,
		Timeslots:   merged.Timeslots,
		UserList:    merged.Users,
		EventParts:  merged.EventParts,
		FileKey:     fileKey,
		DelayMillis: a.solveBudget(windowStart, windowEnd),
		CallbackURL: a.cfg.CallbackURL,
	}

	hostEvents, attendeeEvents := splitByOwner(merged.OldEvents, hostID)
	record := models.ArchiveRecord{
		Payload:           *payload,
		HostTimezone:      hostTimezone,
		GeneratedBreaks:   merged.Breaks,
		OldEvents:         hostEvents,
		OldAttendeeEvents: attendeeEvents,
		NewBufferTimes:    bundleParts(merged.Bundles),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("assembler: marshal archive record: %w", err)
	}
	if err := a.archive.Put(ctx, fileKey, data); err != nil {
		return nil, fmt.Errorf("assembler: archive payload: %w", err)
	}

	if err := a.solver.Solve(ctx, payload); err != nil {
		return nil, fmt.Errorf("assembler: dispatch payload: %w", err)
	}

	metrics.IncPayloadDispatched()
	if a.logger != nil {
		a.logger.Info().
			Str("host_id", hostID).
			Str("singleton_id", singletonID).
			Int("event_parts", len(payload.EventParts)).
			Int("timeslots", len(payload.Timeslots)).
			Int("users", len(payload.UserList)).
			Int64("delay_ms", payload.DelayMillis).
			Msg("planner payload dispatched")
	}
	return payload, nil
}

func (a *Assembler) solveBudget(windowStart, windowEnd time.Time) int64 {
	if windowEnd.Sub(windowStart) < 48*time.Hour {
		return a.cfg.ShortSolveMillis
	}
	return a.cfg.LongSolveMillis
}

// Merge deduplicates the branch outputs by canonical entity key. The
// same logical item may be recomputed with minor differences across
// branches, so keys are built from identity fields rather than deep
// equality. Output order is sorted by key so identical inputs always
// merge to identical output.
func Merge(branches ...BranchResult) BranchResult {
	var out BranchResult

	partSeen := make(map[string]bool)
	slotSeen := make(map[string]bool)
	userSeen := make(map[string]bool)
	breakSeen := make(map[string]bool)
	oldSeen := make(map[string]bool)

	for _, b := range branches {
		for _, p := range b.EventParts {
			key := p.EventID + "|" + strconv.Itoa(p.Part)
			if partSeen[key] {
				continue
			}
			partSeen[key] = true
			out.EventParts = append(out.EventParts, p)
		}
		for _, s := range b.Timeslots {
			key := s.MonthDay + "|" + s.DayOfWeek + "|" + s.StartTime + "|" + s.HostID
			if slotSeen[key] {
				continue
			}
			slotSeen[key] = true
			out.Timeslots = append(out.Timeslots, s)
		}
		for _, u := range b.Users {
			if userSeen[u.ID] {
				continue
			}
			userSeen[u.ID] = true
			out.Users = append(out.Users, u)
		}
		for _, br := range b.Breaks {
			if breakSeen[br.ID] {
				continue
			}
			breakSeen[br.ID] = true
			out.Breaks = append(out.Breaks, br)
		}
		for _, ev := range b.OldEvents {
			if oldSeen[ev.ID] {
				continue
			}
			oldSeen[ev.ID] = true
			out.OldEvents = append(out.OldEvents, ev)
		}
		out.Bundles = append(out.Bundles, b.Bundles...)
	}

	sort.Slice(out.EventParts, func(i, j int) bool {
		if out.EventParts[i].EventID != out.EventParts[j].EventID {
			return out.EventParts[i].EventID < out.EventParts[j].EventID
		}
		return out.EventParts[i].Part < out.EventParts[j].Part
	})
	sort.Slice(out.Timeslots, func(i, j int) bool {
		a, b := out.Timeslots[i], out.Timeslots[j]
		if a.MonthDay != b.MonthDay {
			return a.MonthDay < b.MonthDay
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.HostID < b.HostID
	})
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].ID < out.Users[j].ID })
	sort.Slice(out.Breaks, func(i, j int) bool { return out.Breaks[i].ID < out.Breaks[j].ID })
	sort.Slice(out.OldEvents, func(i, j int) bool { return out.OldEvents[i].ID < out.OldEvents[j].ID })

	return out
}

func splitByOwner(events []models.CalendarEvent, hostID string) (host, attendees []models.CalendarEvent) {
	for _, ev := range events {
		if ev.UserID == hostID {
			host = append(host, ev)
		} else {
			attendees = append(attendees, ev)
		}
	}
	return host, attendees
}

func bundleParts(bundles []models.BufferTimeBundle) []models.EventPart {
	var parts []models.EventPart
	for _, b := range bundles {
		if b.BeforeEvent != nil {
			parts = append(parts, models.EventPart{CalendarEvent: *b.BeforeEvent, EventID: b.BeforeEvent.ID})
		}
		if b.AfterEvent != nil {
			parts = append(parts, models.EventPart{CalendarEvent: *b.AfterEvent, EventID: b.AfterEvent.ID})
		}
	}
	return parts
}
