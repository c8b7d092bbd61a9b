package models

import "time"

// CalendarEvent is one calendar entry as read from the event store.
// Break and buffer events are synthesized in-memory during a planning run
// with the same shape and are never written back by the pipeline.
type CalendarEvent struct {
	ID         string `json:"id"`
	EventID    string `json:"eventId,omitempty"` // groups recurring instances
	UserID     string `json:"userId"`
	HostID     string `json:"hostId,omitempty"`
	CalendarID string `json:"calendarId"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Timezone  string    `json:"timezone"`
	AllDay    bool      `json:"allDay,omitempty"`

	// Duration is the event length in minutes.
	Duration int `json:"duration,omitempty"`

	IsBreak           bool `json:"isBreak,omitempty"`
	IsPreEvent        bool `json:"isPreEvent,omitempty"`
	IsPostEvent       bool `json:"isPostEvent,omitempty"`
	IsMeeting         bool `json:"isMeeting,omitempty"`
	IsExternalMeeting bool `json:"isExternalMeeting,omitempty"`
	Modifiable        bool `json:"modifiable,omitempty"`

	// ForEventID links a buffer event to the event it pads.
	ForEventID  string `json:"forEventId,omitempty"`
	PreEventID  string `json:"preEventId,omitempty"`
	PostEventID string `json:"postEventId,omitempty"`

	Priority int `json:"priority,omitempty"`

	PreferredDayOfWeek      string `json:"preferredDayOfWeek,omitempty"`
	PreferredTime           string `json:"preferredTime,omitempty"` // HH:mm:ss
	PreferredStartTimeRange string `json:"preferredStartTimeRange,omitempty"`
	PreferredEndTimeRange   string `json:"preferredEndTimeRange,omitempty"`

	PositiveImpactDayOfWeek string `json:"positiveImpactDayOfWeek,omitempty"`
	PositiveImpactTime      string `json:"positiveImpactTime,omitempty"`
	PositiveImpactScore     int    `json:"positiveImpactScore,omitempty"`
	NegativeImpactDayOfWeek string `json:"negativeImpactDayOfWeek,omitempty"`
	NegativeImpactTime      string `json:"negativeImpactTime,omitempty"`
	NegativeImpactScore     int    `json:"negativeImpactScore,omitempty"`

	HardDeadline string `json:"hardDeadline,omitempty"`
	SoftDeadline string `json:"softDeadline,omitempty"`

	RecurringEventID string `json:"recurringEventId,omitempty"`
	// Recurrence is the RRULE string on a recurring master event.
	Recurrence string `json:"recurrence,omitempty"`

	DailyTaskList  bool `json:"dailyTaskList,omitempty"`
	WeeklyTaskList bool `json:"weeklyTaskList,omitempty"`

	// BufferTime is an explicit per-event override for lead-in/lead-out
	// minutes; zero values mean "no override".
	BeforeEventMinutes int `json:"beforeEventMinutes,omitempty"`
	AfterEventMinutes  int `json:"afterEventMinutes,omitempty"`
}

// EventPart is a solver-sized fragment of a calendar event. All event
// fields are carried along so the solver sees the full scheduling
// metadata on every part.
type EventPart struct {
	CalendarEvent

	// GroupID is shared by every part of one original event and its
	// woven buffers.
	GroupID string `json:"groupId"`
	// EventID is the origin event id (shadows the recurring-group field
	// of the embedded event on purpose).
	EventID string `json:"eventId"`
	// Part is the 1-based index inside the group; LastPart is the
	// group's total part count.
	Part     int `json:"part"`
	LastPart int `json:"lastPart"`

	// MeetingPart/MeetingLastPart mirror Part/LastPart when the origin
	// event belongs to a meeting.
	MeetingPart     int `json:"meetingPart,omitempty"`
	MeetingLastPart int `json:"meetingLastPart,omitempty"`
}

// BufferTimeBundle is the result of weaving buffers onto one event.
type BufferTimeBundle struct {
	BeforeEvent *CalendarEvent `json:"beforeEvent,omitempty"`
	AfterEvent  *CalendarEvent `json:"afterEvent,omitempty"`
	// NewEvent is the owning event with preEventId/postEventId updated.
	NewEvent CalendarEvent `json:"newEvent"`
}
