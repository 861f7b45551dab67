// Package budgeting computes budget period windows anchored to a budget's
// start date and evaluates spending progress within them.
package budgeting

import (
	"strings"
	"time"

	"moneta/internal/calendar"
	apperrors "moneta/internal/errors"
)

// Period is the length of a budget cycle.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods returns every supported period.
func Periods() []Period {
	return []Period{PeriodWeekly, PeriodMonthly, PeriodYearly}
}

// ParsePeriod converts s into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", apperrors.WithMessagef(apperrors.ErrInvalidBudgetPeriod,
			"invalid budget period %q: must be one of weekly, monthly, yearly", s)
	}
	return p, nil
}

func (p Period) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

func (p Period) String() string { return string(p) }

// Range is an inclusive time window.
type Range struct {
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

// Contains reports whether t falls within r, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// CurrentRange returns the period window containing now for a budget
// anchored at anchor. The window starts at midnight on the most recent
// anchor boundary at or before now and ends on the last instant before the
// following boundary. Anchor days missing from a month are clamped to the
// month's last day. Everything is evaluated in now's location.
func (p Period) CurrentRange(anchor, now time.Time) Range {
	anchor = anchor.In(now.Location())
	today := calendar.StartOfDay(now)

	switch p {
	case PeriodWeekly:
		start := today.AddDate(0, 0, -calendar.DaysSinceWeekday(now, anchor.Weekday()))
		return Range{Start: start, End: calendar.EndOfDay(start.AddDate(0, 0, 6))}

	case PeriodMonthly:
		day := anchor.Day()
		start := calendar.DateClamped(now.Year(), now.Month(), day, today)
		if start.After(now) {
			start = calendar.DateClamped(now.Year(), now.Month()-1, day, today)
		}
		next := calendar.DateClamped(start.Year(), start.Month()+1, day, today)
		return Range{Start: start, End: next.Add(-time.Nanosecond)}

	case PeriodYearly:
		month, day := anchor.Month(), anchor.Day()
		start := calendar.DateClamped(now.Year(), month, day, today)
		if start.After(now) {
			start = calendar.DateClamped(now.Year()-1, month, day, today)
		}
		next := calendar.DateClamped(start.Year()+1, month, day, today)
		return Range{Start: start, End: next.Add(-time.Nanosecond)}
	}

	return Range{Start: today, End: calendar.EndOfDay(today)}
}
