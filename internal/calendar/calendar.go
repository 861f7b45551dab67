// Package calendar holds the date arithmetic shared by recurrence schedules
// and budget periods. All helpers are pure and operate in the location of the
// time values they are given.
package calendar

import "time"

// DaysInMonth returns the number of days in the given month. Month values
// outside 1..12 are normalised the same way time.Date does.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns min(day, DaysInMonth(year, month)).
func ClampDay(year int, month time.Month, day int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// DateClamped builds a date in (year, month) on day clamped to the month's
// length, keeping the clock fields of ref. Year overflow from month values
// beyond 12 is carried before clamping.
func DateClamped(year int, month time.Month, day int, ref time.Time) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	y, m := first.Year(), first.Month()
	return time.Date(y, m, ClampDay(y, m, day), ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

// StartOfDay returns t at 00:00:00 in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DaysUntilWeekday returns the number of days (0..6) to move forward from
// t to land on target.
func DaysUntilWeekday(t time.Time, target time.Weekday) int {
	return (int(target) - int(t.Weekday()) + 7) % 7
}

// DaysSinceWeekday returns the number of days (0..6) to move back from t to
// land on target.
func DaysSinceWeekday(t time.Time, target time.Weekday) int {
	return (int(t.Weekday()) - int(target) + 7) % 7
}

