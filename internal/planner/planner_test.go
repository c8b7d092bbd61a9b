package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rush86999/atomic-sub002/internal/assembler"
	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/workhours"
)

const hostTZ = "America/New_York"

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListEvents(ctx context.Context, userID string, start, end time.Time, timezone string) ([]models.CalendarEvent, error) {
	args := m.Called(ctx, userID, start, end, timezone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarEvent), args.Error(1)
}

func (m *mockStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreference), args.Error(1)
}

func (m *mockStore) GetPrimaryCalendar(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Put(ctx context.Context, key string, data []byte) error {
	return m.Called(ctx, key, data).Error(0)
}

type mockSolver struct {
	mock.Mock
}

func (m *mockSolver) Solve(ctx context.Context, payload *models.PlannerPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func hostPreference() *models.UserPreference {
	pref := &models.UserPreference{
		UserID:             "host-1",
		BreakLength:        15,
		MinNumberOfBreaks:  2,
		MaxWorkLoadPercent: 80,
		BackToBackMeetings: true,
		BeforeEventMinutes: 30,
		AfterEventMinutes:  30,
	}
	for day := 1; day <= 7; day++ {
		pref.StartTimes = append(pref.StartTimes, models.DayTime{Day: day, Hour: 9})
		pref.EndTimes = append(pref.EndTimes, models.DayTime{Day: day, Hour: 17})
	}
	return pref
}

func newPlanner(t *testing.T, store EventStore, archive assembler.BlobArchive, solver assembler.SolverDispatcher) *Planner {
	t.Helper()
	logger := zerolog.Nop()
	asm := assembler.New(assembler.Config{CallbackURL: "http://cb"}, archive, solver, &logger)
	return New(&Config{Granularity: 30}, store, asm, &logger)
}

func mondayWindow(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	loc, err := time.LoadLocation(hostTZ)
	require.NoError(t, err)
	// Monday 2024-03-04 08:00 through Tuesday 17:00, New York.
	return time.Date(2024, 3, 4, 8, 0, 0, 0, loc), time.Date(2024, 3, 5, 17, 0, 0, 0, loc)
}

func TestPlanHostOnly(t *testing.T) {
	store := new(mockStore)
	archive := new(mockArchive)
	solver := new(mockSolver)
	p := newPlanner(t, store, archive, solver)
	ctx := context.Background()

	start, end := mondayWindow(t)
	loc := start.Location()
	meeting := models.CalendarEvent{
		ID:         "ev-1",
		UserID:     "host-1",
		CalendarID: "cal-1",
		StartDate:  time.Date(2024, 3, 4, 9, 0, 0, 0, loc),
		EndDate:    time.Date(2024, 3, 4, 12, 0, 0, 0, loc),
		Timezone:   hostTZ,
		IsMeeting:  true,
	}

	store.On("GetPreferences", ctx, "host-1").Return(hostPreference(), nil).Once()
	store.On("ListEvents", ctx, "host-1", start, end, hostTZ).Return([]models.CalendarEvent{meeting}, nil).Once()
	store.On("GetPrimaryCalendar", ctx, "host-1").Return("cal-1", nil).Once()
	archive.On("Put", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	solver.On("Solve", ctx, mock.Anything).Return(nil).Once()

	payload, err := p.Plan(ctx, Request{
		HostID:       "host-1",
		HostTimezone: hostTZ,
		WindowStart:  start,
		WindowEnd:    end,
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
	archive.AssertExpectations(t)
	solver.AssertExpectations(t)

	require.Len(t, payload.UserList, 1)
	assert.Equal(t, "host-1", payload.UserList[0].ID)
	assert.Len(t, payload.UserList[0].WorkTimes, 7)

	// Two 8-hour days at 30-minute granularity.
	assert.Len(t, payload.Timeslots, 32)

	// The meeting yields 6 parts plus one buffer part on each side;
	// six generated breaks add one part each.
	assert.Len(t, payload.EventParts, 14)

	breakParts := 0
	var meetingGroup []models.EventPart
	for _, part := range payload.EventParts {
		if part.IsBreak {
			breakParts++
		}
		if part.EventID == "ev-1" || part.ForEventID == "ev-1" {
			meetingGroup = append(meetingGroup, part)
		}
	}
	assert.Equal(t, 6, breakParts)
	require.Len(t, meetingGroup, 8)
	for _, part := range meetingGroup {
		assert.Equal(t, 8, part.LastPart)
	}
}

func TestPlanHostListedAsAttendee(t *testing.T) {
	store := new(mockStore)
	archive := new(mockArchive)
	solver := new(mockSolver)
	p := newPlanner(t, store, archive, solver)
	ctx := context.Background()

	start, end := mondayWindow(t)
	loc := start.Location()
	meeting := models.CalendarEvent{
		ID:         "ev-1",
		UserID:     "host-1",
		CalendarID: "cal-1",
		StartDate:  time.Date(2024, 3, 4, 9, 0, 0, 0, loc),
		EndDate:    time.Date(2024, 3, 4, 12, 0, 0, 0, loc),
		Timezone:   hostTZ,
		IsMeeting:  true,
	}

	// The host appears in both attendee lists; only the host branch may
	// process them, so every store call happens exactly once.
	store.On("GetPreferences", ctx, "host-1").Return(hostPreference(), nil).Once()
	store.On("ListEvents", ctx, "host-1", start, end, hostTZ).Return([]models.CalendarEvent{meeting}, nil).Once()
	store.On("GetPrimaryCalendar", ctx, "host-1").Return("cal-1", nil).Once()
	archive.On("Put", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	solver.On("Solve", ctx, mock.Anything).Return(nil).Once()

	payload, err := p.Plan(ctx, Request{
		HostID:            "host-1",
		HostTimezone:      hostTZ,
		WindowStart:       start,
		WindowEnd:         end,
		InternalAttendees: []Attendee{{UserID: "host-1", Timezone: hostTZ}},
		ExternalAttendees: []Attendee{{UserID: "host-1", Timezone: hostTZ}},
	})
	require.NoError(t, err)
	store.AssertExpectations(t)

	// Same payload as the host-only run: regenerated breaks and buffers
	// under fresh ids would have doubled these counts.
	assert.Len(t, payload.Timeslots, 32)
	assert.Len(t, payload.EventParts, 14)
	require.Len(t, payload.UserList, 1)
	assert.Equal(t, "host-1", payload.UserList[0].ID)
}

func TestPlanFatalConfiguration(t *testing.T) {
	ctx := context.Background()
	start, end := mondayWindow(t)
	req := Request{HostID: "host-1", HostTimezone: hostTZ, WindowStart: start, WindowEnd: end}

	t.Run("preference lookup failure", func(t *testing.T) {
		store := new(mockStore)
		p := newPlanner(t, store, new(mockArchive), new(mockSolver))
		store.On("GetPreferences", ctx, "host-1").Return(nil, errors.New("store down"))
		store.On("ListEvents", ctx, "host-1", mock.Anything, mock.Anything, hostTZ).Return([]models.CalendarEvent{}, nil).Maybe()

		_, err := p.Plan(ctx, req)
		assert.ErrorContains(t, err, "store down")
	})

	t.Run("missing weekday preference", func(t *testing.T) {
		store := new(mockStore)
		p := newPlanner(t, store, new(mockArchive), new(mockSolver))
		pref := hostPreference()
		pref.StartTimes = pref.StartTimes[:1]
		pref.EndTimes = pref.EndTimes[:1]
		store.On("GetPreferences", ctx, "host-1").Return(pref, nil)
		store.On("ListEvents", ctx, "host-1", mock.Anything, mock.Anything, hostTZ).Return([]models.CalendarEvent{}, nil)
		store.On("GetPrimaryCalendar", ctx, "host-1").Return("cal-1", nil)

		_, err := p.Plan(ctx, req)
		assert.ErrorIs(t, err, workhours.ErrNoPreferenceForDay)
	})

	t.Run("missing primary calendar", func(t *testing.T) {
		store := new(mockStore)
		p := newPlanner(t, store, new(mockArchive), new(mockSolver))
		store.On("GetPreferences", ctx, "host-1").Return(hostPreference(), nil)
		store.On("ListEvents", ctx, "host-1", mock.Anything, mock.Anything, hostTZ).Return([]models.CalendarEvent{}, nil)
		store.On("GetPrimaryCalendar", ctx, "host-1").Return("", nil)

		_, err := p.Plan(ctx, req)
		assert.ErrorIs(t, err, ErrNoPrimaryCalendar)
	})

	t.Run("invalid request", func(t *testing.T) {
		p := newPlanner(t, new(mockStore), new(mockArchive), new(mockSolver))
		_, err := p.Plan(ctx, Request{HostTimezone: hostTZ, WindowStart: start, WindowEnd: end})
		assert.ErrorContains(t, err, "host id")

		_, err = p.Plan(ctx, Request{HostID: "h", HostTimezone: hostTZ, WindowStart: end, WindowEnd: start})
		assert.ErrorContains(t, err, "planning window")
	})
}

func TestPlanExternalAttendeeWithoutEvents(t *testing.T) {
	store := new(mockStore)
	archive := new(mockArchive)
	solver := new(mockSolver)
	p := newPlanner(t, store, archive, solver)
	ctx := context.Background()

	start, end := mondayWindow(t)
	loc := start.Location()
	meeting := models.CalendarEvent{
		ID:         "ev-1",
		UserID:     "host-1",
		CalendarID: "cal-1",
		StartDate:  time.Date(2024, 3, 4, 10, 0, 0, 0, loc),
		EndDate:    time.Date(2024, 3, 4, 11, 0, 0, 0, loc),
		Timezone:   hostTZ,
	}

	pref := hostPreference()
	pref.BreakLength = 0 // keep this run break-free
	store.On("GetPreferences", ctx, "host-1").Return(pref, nil)
	store.On("ListEvents", ctx, "host-1", start, end, hostTZ).Return([]models.CalendarEvent{meeting}, nil)
	store.On("ListEvents", ctx, "ext-1", start, end, hostTZ).Return([]models.CalendarEvent{}, nil)
	archive.On("Put", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	solver.On("Solve", ctx, mock.Anything).Return(nil).Once()

	payload, err := p.Plan(ctx, Request{
		HostID:            "host-1",
		HostTimezone:      hostTZ,
		WindowStart:       start,
		WindowEnd:         end,
		ExternalAttendees: []Attendee{{UserID: "ext-1", Timezone: "Europe/Berlin"}},
	})
	require.NoError(t, err)

	// The empty external branch contributes nothing but does not fail
	// the run.
	require.Len(t, payload.UserList, 1)
	assert.Equal(t, "host-1", payload.UserList[0].ID)
}
