package models

// DayTime is a wall-clock hour/minute pinned to an ISO weekday
// (1 = Monday .. 7 = Sunday).
type DayTime struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// UserPreference holds a user's scheduling preferences. StartTimes and
// EndTimes carry exactly one entry per ISO weekday 1..7.
type UserPreference struct {
	UserID string `json:"userId"`

	StartTimes []DayTime `json:"startTimes"`
	EndTimes   []DayTime `json:"endTimes"`

	// BreakLength is the length of one break in minutes; zero disables
	// break generation.
	BreakLength       int `json:"breakLength,omitempty"`
	MinNumberOfBreaks int `json:"minNumberOfBreaks,omitempty"`
	// MaxWorkLoadPercent caps the share of the working window spent in
	// events; the remainder is the rest budget.
	MaxWorkLoadPercent  int  `json:"maxWorkLoadPercent,omitempty"`
	BackToBackMeetings  bool `json:"backToBackMeetings,omitempty"`
	MaxNumberOfMeetings int  `json:"maxNumberOfMeetings,omitempty"`

	// Default lead-in/lead-out minutes applied to meetings that have no
	// explicit per-event override.
	BeforeEventMinutes int `json:"beforeEventMinutes,omitempty"`
	AfterEventMinutes  int `json:"afterEventMinutes,omitempty"`
}

// StartFor returns the work-start entry for the ISO weekday, if present.
func (p *UserPreference) StartFor(isoWeekday int) (DayTime, bool) {
	for _, dt := range p.StartTimes {
		if dt.Day == isoWeekday {
			return dt, true
		}
	}
	return DayTime{}, false
}

// EndFor returns the work-end entry for the ISO weekday, if present.
func (p *UserPreference) EndFor(isoWeekday int) (DayTime, bool) {
	for _, dt := range p.EndTimes {
		if dt.Day == isoWeekday {
			return dt, true
		}
	}
	return DayTime{}, false
}

// WorkTime is one resolved working window for a weekday, expressed in
// host-timezone wall clock. Derived, never persisted.
type WorkTime struct {
	DayOfWeek string `json:"dayOfWeek"` // MONDAY..SUNDAY
	StartTime string `json:"startTime"` // HH:mm:ss
	EndTime   string `json:"endTime"`   // HH:mm:ss
	HostID    string `json:"hostId"`
	UserID    string `json:"userId"`
}
