package recurrence

import (
	"time"

	"moneta/internal/calendar"
	apperrors "moneta/internal/errors"
)

const (
	MinInterval = 1
	MaxInterval = 365
)

// ScheduleParams is the raw, unvalidated input for a schedule.
type ScheduleParams struct {
	Frequency   string
	Interval    int
	DayOfWeek   *int
	DayOfMonth  *int
	MonthOfYear *int
}

// Schedule is a validated recurrence rule. The zero value is not usable;
// construct with NewSchedule.
type Schedule struct {
	frequency   Frequency
	interval    int
	dayOfWeek   int
	dayOfMonth  int
	monthOfYear int
}

// SchedulePrimitives is the plain-data projection of a Schedule.
type SchedulePrimitives struct {
	Frequency   Frequency `json:"frequency"`
	Interval    int       `json:"interval"`
	DayOfWeek   *int      `json:"day_of_week,omitempty"`
	DayOfMonth  *int      `json:"day_of_month,omitempty"`
	MonthOfYear *int      `json:"month_of_year,omitempty"`
}

// NewSchedule validates p and returns the schedule. Anchor fields that the
// frequency does not require are dropped.
func NewSchedule(p ScheduleParams) (Schedule, error) {
	freq, err := ParseFrequency(p.Frequency)
	if err != nil {
		return Schedule{}, err
	}

	if p.Interval < MinInterval || p.Interval > MaxInterval {
		return Schedule{}, apperrors.WithMessagef(apperrors.ErrInvalidInterval,
			"interval must be an integer between %d and %d, got %d", MinInterval, MaxInterval, p.Interval)
	}

	s := Schedule{frequency: freq, interval: p.Interval}

	if freq.RequiresDayOfWeek() {
		v, err := requireAnchor(freq, AnchorDayOfWeek, p.DayOfWeek, 0, 6)
		if err != nil {
			return Schedule{}, err
		}
		s.dayOfWeek = v
	}
	if freq.RequiresDayOfMonth() {
		v, err := requireAnchor(freq, AnchorDayOfMonth, p.DayOfMonth, 1, 31)
		if err != nil {
			return Schedule{}, err
		}
		s.dayOfMonth = v
	}
	if freq.RequiresMonthOfYear() {
		v, err := requireAnchor(freq, AnchorMonthOfYear, p.MonthOfYear, 1, 12)
		if err != nil {
			return Schedule{}, err
		}
		s.monthOfYear = v
	}

	return s, nil
}

func requireAnchor(freq Frequency, field AnchorField, value *int, min, max int) (int, error) {
	if value == nil {
		return 0, apperrors.WithMessagef(apperrors.ErrInvalidSchedule,
			"%s is required for %s schedules", field, freq)
	}
	if *value < min || *value > max {
		return 0, apperrors.WithMessagef(apperrors.ErrInvalidSchedule,
			"%s must be between %d and %d, got %d", field, min, max, *value)
	}
	return *value, nil
}

// MustSchedule is NewSchedule for statically known input; it panics on error.
func MustSchedule(p ScheduleParams) Schedule {
	s, err := NewSchedule(p)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schedule) Frequency() Frequency { return s.frequency }
func (s Schedule) Interval() int        { return s.interval }

// DayOfWeek returns the weekday anchor, if the frequency uses one.
func (s Schedule) DayOfWeek() (time.Weekday, bool) {
	return time.Weekday(s.dayOfWeek), s.frequency.RequiresDayOfWeek()
}

// DayOfMonth returns the day-of-month anchor, if the frequency uses one.
func (s Schedule) DayOfMonth() (int, bool) {
	return s.dayOfMonth, s.frequency.RequiresDayOfMonth()
}

// MonthOfYear returns the month anchor, if the frequency uses one.
func (s Schedule) MonthOfYear() (time.Month, bool) {
	return time.Month(s.monthOfYear), s.frequency.RequiresMonthOfYear()
}

// IsZero reports whether s was never constructed.
func (s Schedule) IsZero() bool { return s.frequency == "" }

// Equal reports whether two schedules describe the same rule.
func (s Schedule) Equal(o Schedule) bool { return s == o }

// NextRunDate returns the occurrence following from. The clock fields and
// location of from are kept; only the date moves.
func (s Schedule) NextRunDate(from time.Time) time.Time {
	switch s.frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, s.interval)

	case FrequencyWeekly:
		advanced := from.AddDate(0, 0, 7*s.interval)
		return advanced.AddDate(0, 0, calendar.DaysUntilWeekday(advanced, time.Weekday(s.dayOfWeek)))

	case FrequencyMonthly:
		return calendar.DateClamped(from.Year(), from.Month()+time.Month(s.interval), s.dayOfMonth, from)

	case FrequencyYearly:
		return calendar.DateClamped(from.Year()+s.interval, time.Month(s.monthOfYear), s.dayOfMonth, from)
	}
	return from
}

// FirstRunDate returns the first on-cadence date at or after start. A start
// date that already matches the anchors is its own first run.
func (s Schedule) FirstRunDate(start time.Time) time.Time {
	switch s.frequency {
	case FrequencyWeekly:
		return start.AddDate(0, 0, calendar.DaysUntilWeekday(start, time.Weekday(s.dayOfWeek)))

	case FrequencyMonthly:
		candidate := calendar.DateClamped(start.Year(), start.Month(), s.dayOfMonth, start)
		if candidate.Before(start) {
			candidate = calendar.DateClamped(start.Year(), start.Month()+1, s.dayOfMonth, start)
		}
		return candidate

	case FrequencyYearly:
		candidate := calendar.DateClamped(start.Year(), time.Month(s.monthOfYear), s.dayOfMonth, start)
		if candidate.Before(start) {
			candidate = calendar.DateClamped(start.Year()+1, time.Month(s.monthOfYear), s.dayOfMonth, start)
		}
		return candidate
	}
	return start
}

// Occurrences returns the next n run dates strictly after from.
func (s Schedule) Occurrences(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	current := from
	for i := 0; i < n; i++ {
		current = s.NextRunDate(current)
		out = append(out, current)
	}
	return out
}

// ToPrimitives returns the plain-data projection of s.
func (s Schedule) ToPrimitives() SchedulePrimitives {
	p := SchedulePrimitives{Frequency: s.frequency, Interval: s.interval}
	if s.frequency.RequiresDayOfWeek() {
		v := s.dayOfWeek
		p.DayOfWeek = &v
	}
	if s.frequency.RequiresDayOfMonth() {
		v := s.dayOfMonth
		p.DayOfMonth = &v
	}
	if s.frequency.RequiresMonthOfYear() {
		v := s.monthOfYear
		p.MonthOfYear = &v
	}
	return p
}

// Params converts s back into constructor input, e.g. as the base of a patch.
func (s Schedule) Params() ScheduleParams {
	p := s.ToPrimitives()
	return ScheduleParams{
		Frequency:   string(p.Frequency),
		Interval:    p.Interval,
		DayOfWeek:   p.DayOfWeek,
		DayOfMonth:  p.DayOfMonth,
		MonthOfYear: p.MonthOfYear,
	}
}
