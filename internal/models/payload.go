package models

// TimeSlot is one quantized candidate scheduling position inside a
// working window, labeled in host timezone.
type TimeSlot struct {
	DayOfWeek string `json:"dayOfWeek"` // MONDAY..SUNDAY
	MonthDay  string `json:"monthDay"`  // --MM-DD
	Date      string `json:"date"`      // YYYY-MM-DD
	StartTime string `json:"startTime"` // HH:mm:ss
	EndTime   string `json:"endTime"`   // HH:mm:ss
	HostID    string `json:"hostId"`
}

// UserPlannerParams is one attendee's planning parameters as sent to the
// solver.
type UserPlannerParams struct {
	ID     string `json:"id"`
	HostID string `json:"hostId"`

	MaxWorkLoadPercent  int  `json:"maxWorkLoadPercent"`
	BackToBackMeetings  bool `json:"backToBackMeetings"`
	MaxNumberOfMeetings int  `json:"maxNumberOfMeetings"`
	MinNumberOfBreaks   int  `json:"minNumberOfBreaks"`

	WorkTimes []WorkTime `json:"workTimes"`
	Timezone  string     `json:"timezone,omitempty"`
}

// PlannerPayload is the deduplicated problem instance dispatched to the
// solver. It is never mutated after dispatch.
type PlannerPayload struct {
	SingletonID string `json:"singletonId"`
	HostID      string `json:"hostId"`

	Timeslots  []TimeSlot          `json:"timeslots"`
	UserList   []UserPlannerParams `json:"userList"`
	EventParts []EventPart         `json:"eventParts"`

	// FileKey is the blob-archive key {hostId}/{singletonId}.json.
	FileKey string `json:"fileKey"`
	// DelayMillis is the solving-time budget handed to the solver.
	DelayMillis int64  `json:"delay"`
	CallbackURL string `json:"callBackUrl"`
}

// ArchiveRecord is the audit snapshot written to blob storage alongside
// the payload before dispatch.
type ArchiveRecord struct {
	Payload PlannerPayload `json:"payload"`

	HostTimezone    string          `json:"hostTimezone"`
	GeneratedBreaks []CalendarEvent `json:"generatedBreaks,omitempty"`
	// OldEvents holds the host's pre-existing events, OldAttendeeEvents
	// everyone else's.
	OldEvents         []CalendarEvent `json:"oldEvents,omitempty"`
	OldAttendeeEvents []CalendarEvent `json:"oldAttendeeEvents,omitempty"`
	NewBufferTimes    []EventPart     `json:"newBufferTimes,omitempty"`
}
