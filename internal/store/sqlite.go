// Package store implements the planner's event/preference store on
// sqlite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rush86999/atomic-sub002/internal/models"
	"github.com/rush86999/atomic-sub002/internal/timeutil"
)

// DB wraps sql.DB for the planner.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			is_primary BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			event_id TEXT,
			user_id TEXT NOT NULL,
			calendar_id TEXT NOT NULL,
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			timezone TEXT NOT NULL,
			all_day BOOLEAN NOT NULL DEFAULT 0,
			is_break BOOLEAN NOT NULL DEFAULT 0,
			is_meeting BOOLEAN NOT NULL DEFAULT 0,
			is_external_meeting BOOLEAN NOT NULL DEFAULT 0,
			modifiable BOOLEAN NOT NULL DEFAULT 1,
			priority INTEGER NOT NULL DEFAULT 1,
			recurring_event_id TEXT,
			recurrence TEXT,
			daily_task_list BOOLEAN NOT NULL DEFAULT 0,
			weekly_task_list BOOLEAN NOT NULL DEFAULT 0,
			before_event_minutes INTEGER NOT NULL DEFAULT 0,
			after_event_minutes INTEGER NOT NULL DEFAULT 0,
			pre_event_id TEXT,
			post_event_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (calendar_id) REFERENCES calendars(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_user_window
			ON events(user_id, start_date, end_date)`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			break_length INTEGER NOT NULL DEFAULT 0,
			min_number_of_breaks INTEGER NOT NULL DEFAULT 0,
			max_work_load_percent INTEGER NOT NULL DEFAULT 100,
			back_to_back_meetings BOOLEAN NOT NULL DEFAULT 0,
			max_number_of_meetings INTEGER NOT NULL DEFAULT 0,
			before_event_minutes INTEGER NOT NULL DEFAULT 0,
			after_event_minutes INTEGER NOT NULL DEFAULT 0
		)`,

		// One row per ISO weekday 1..7 per user.
		`CREATE TABLE IF NOT EXISTS user_work_hours (
			user_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_hour INTEGER NOT NULL,
			start_minute INTEGER NOT NULL,
			end_hour INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			PRIMARY KEY (user_id, day_of_week)
		)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// ListEvents returns the user's events overlapping [start, end), with
// dates re-anchored to the given timezone.
func (db *DB) ListEvents(ctx context.Context, userID string, start, end time.Time, timezone string) ([]models.CalendarEvent, error) {
	loc, err := timeutil.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(event_id, ''), user_id, calendar_id,
		       start_date, end_date, timezone, all_day,
		       is_break, is_meeting, is_external_meeting, modifiable, priority,
		       COALESCE(recurring_event_id, ''), COALESCE(recurrence, ''),
		       daily_task_list, weekly_task_list,
		       before_event_minutes, after_event_minutes,
		       COALESCE(pre_event_id, ''), COALESCE(post_event_id, '')
		FROM events
		WHERE user_id = ? AND start_date < ? AND end_date > ?
		ORDER BY start_date`,
		userID, end, start,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		if err := rows.Scan(
			&ev.ID, &ev.EventID, &ev.UserID, &ev.CalendarID,
			&ev.StartDate, &ev.EndDate, &ev.Timezone, &ev.AllDay,
			&ev.IsBreak, &ev.IsMeeting, &ev.IsExternalMeeting, &ev.Modifiable, &ev.Priority,
			&ev.RecurringEventID, &ev.Recurrence,
			&ev.DailyTaskList, &ev.WeeklyTaskList,
			&ev.BeforeEventMinutes, &ev.AfterEventMinutes,
			&ev.PreEventID, &ev.PostEventID,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.StartDate = ev.StartDate.In(loc)
		ev.EndDate = ev.EndDate.In(loc)
		ev.Duration = timeutil.MinutesBetween(ev.StartDate, ev.EndDate)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetPreferences returns the user's preferences with the per-weekday
// work hours attached.
func (db *DB) GetPreferences(ctx context.Context, userID string) (*models.UserPreference, error) {
	pref := &models.UserPreference{UserID: userID}
	err := db.QueryRowContext(ctx, `
		SELECT break_length, min_number_of_breaks, max_work_load_percent,
		       back_to_back_meetings, max_number_of_meetings,
		       before_event_minutes, after_event_minutes
		FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(
		&pref.BreakLength, &pref.MinNumberOfBreaks, &pref.MaxWorkLoadPercent,
		&pref.BackToBackMeetings, &pref.MaxNumberOfMeetings,
		&pref.BeforeEventMinutes, &pref.AfterEventMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences for %s: %w", userID, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT day_of_week, start_hour, start_minute, end_hour, end_minute
		FROM user_work_hours WHERE user_id = ? ORDER BY day_of_week`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get work hours for %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, sh, sm, eh, em int
		if err := rows.Scan(&day, &sh, &sm, &eh, &em); err != nil {
			return nil, fmt.Errorf("scan work hours: %w", err)
		}
		pref.StartTimes = append(pref.StartTimes, models.DayTime{Day: day, Hour: sh, Minute: sm})
		pref.EndTimes = append(pref.EndTimes, models.DayTime{Day: day, Hour: eh, Minute: em})
	}
	return pref, rows.Err()
}

// GetPrimaryCalendar returns the user's primary calendar id, or an
// empty string when none exists.
func (db *DB) GetPrimaryCalendar(ctx context.Context, userID string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx,
		"SELECT id FROM calendars WHERE user_id = ? AND is_primary = 1 LIMIT 1",
		userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get primary calendar for %s: %w", userID, err)
	}
	return id, nil
}
