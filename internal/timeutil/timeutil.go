// Package timeutil holds the shared time arithmetic for the planning
// pipeline. Every slot and part boundary goes through Quantize so all
// components share one rounding policy.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ClockLayout is the wall-clock format used on wire types.
	ClockLayout = "15:04:05"
	// DateLayout is the date stamp format used on timeslots.
	DateLayout = "2006-01-02"
	// MonthDayLayout is the zero-padded --MM-DD tag used on timeslots.
	MonthDayLayout = "--01-02"
)

// ErrMissingTimezone is returned when an instant arrives without a
// timezone. There is no silent UTC fallback.
var ErrMissingTimezone = errors.New("timeutil: missing timezone")

// Quantize snaps a wall-clock minute value to the floor of its
// granularity bin, walking the half-open bins [0,g), [g,2g), ...
func Quantize(minute, granularity int) int {
	if granularity <= 0 {
		return minute
	}
	for floor := 0; floor < 60; floor += granularity {
		if minute >= floor && minute < floor+granularity {
			return floor
		}
	}
	return minute - minute%granularity
}

// FloorToGrain truncates an instant down to its granularity bin,
// dropping seconds.
func FloorToGrain(t time.Time, granularityMinutes int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), Quantize(t.Minute(), granularityMinutes), 0, 0, t.Location())
}

// LoadLocation resolves a timezone name, rejecting empty input.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, ErrMissingTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timeutil: load location %q: %w", tz, err)
	}
	return loc, nil
}

// InZone returns the same instant expressed in another timezone.
func InZone(t time.Time, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// SameWallClock re-anchors the civil time of t in another timezone
// without shifting the represented wall clock.
func SameWallClock(t time.Time, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}

// ISOWeekday returns 1 (Monday) .. 7 (Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

var dayNames = [8]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// DayName returns the symbolic name for an ISO weekday 1..7.
func DayName(isoWeekday int) string {
	if isoWeekday < 1 || isoWeekday > 7 {
		return ""
	}
	return dayNames[isoWeekday]
}

// MinutesBetween returns the whole minutes from a to b.
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a).Minutes())
}

// SameDay reports whether two instants fall on the same calendar day in
// the given timezone. Day membership is always decided in one zone
// (host-centric) to keep break and slot decisions consistent.
func SameDay(a, b time.Time, tz string) (bool, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return false, err
	}
	za, zb := a.In(loc), b.In(loc)
	return za.Year() == zb.Year() && za.YearDay() == zb.YearDay(), nil
}

// FormatClock renders HH:mm:ss wall clock.
func FormatClock(t time.Time) string { return t.Format(ClockLayout) }

// FormatDate renders YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatMonthDay renders the --MM-DD tag.
func FormatMonthDay(t time.Time) string { return t.Format(MonthDayLayout) }
