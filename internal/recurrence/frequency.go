// Package recurrence defines recurring schedules: a frequency, an interval
// and the anchor fields that pin each occurrence to a day of the week, month
// or year. Schedules are immutable values and every computation is pure.
package recurrence

import (
	"strings"

	apperrors "moneta/internal/errors"
)

// Frequency is the cadence of a recurring schedule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// AnchorField names an optional schedule field that a frequency may require.
type AnchorField string

const (
	AnchorDayOfWeek   AnchorField = "day_of_week"
	AnchorDayOfMonth  AnchorField = "day_of_month"
	AnchorMonthOfYear AnchorField = "month_of_year"
)

// requiredAnchors lists the anchor fields each frequency needs. A new frequency
// is one entry here plus one branch in Schedule.NextRunDate.
var requiredAnchors = map[Frequency][]AnchorField{
	FrequencyDaily:   nil,
	FrequencyWeekly:  {AnchorDayOfWeek},
	FrequencyMonthly: {AnchorDayOfMonth},
	FrequencyYearly:  {AnchorDayOfMonth, AnchorMonthOfYear},
}

// Frequencies returns every supported frequency in canonical order.
func Frequencies() []Frequency {
	return []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly}
}

// ParseFrequency converts s into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", apperrors.WithMessagef(apperrors.ErrInvalidFrequency,
			"invalid frequency %q: must be one of daily, weekly, monthly, yearly", s)
	}
	return f, nil
}

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	_, ok := requiredAnchors[f]
	return ok
}

// RequiredAnchors lists the anchor fields f requires.
func (f Frequency) RequiredAnchors() []AnchorField {
	return requiredAnchors[f]
}

// Requires reports whether f requires the given anchor field.
func (f Frequency) Requires(field AnchorField) bool {
	for _, a := range requiredAnchors[f] {
		if a == field {
			return true
		}
	}
	return false
}

func (f Frequency) RequiresDayOfWeek() bool   { return f.Requires(AnchorDayOfWeek) }
func (f Frequency) RequiresDayOfMonth() bool  { return f.Requires(AnchorDayOfMonth) }
func (f Frequency) RequiresMonthOfYear() bool { return f.Requires(AnchorMonthOfYear) }

func (f Frequency) String() string { return string(f) }
