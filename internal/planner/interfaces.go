package planner

import (
	"context"
	"errors"
	"time"

	"github.com/rush86999/atomic-sub002/internal/models"
)

// ErrNoPrimaryCalendar means an attendee who needs break generation has
// no primary calendar to attach breaks to. Fatal for the planning run.
var ErrNoPrimaryCalendar = errors.New("planner: no primary calendar")

// EventStore is the read-only boundary to the persistent event and
// preference store. Calls are cancellable, retryable network calls;
// retry policy belongs to the implementation, not this pipeline.
type EventStore interface {
	// ListEvents returns the user's events between start and end,
	// with dates anchored to the given timezone.
	ListEvents(ctx context.Context, userID string, start, end time.Time, timezone string) ([]models.CalendarEvent, error)

	// GetPreferences returns the user's scheduling preferences.
	GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error)

	// GetPrimaryCalendar returns the id of the user's primary calendar,
	// or an empty string when none exists.
	GetPrimaryCalendar(ctx context.Context, userID string) (string, error)
}
