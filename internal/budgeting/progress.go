package budgeting

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "moneta/internal/errors"
)

// MaxPercentage caps the reported percentage for display.
const MaxPercentage = 999

var hundred = decimal.NewFromInt(100)

// Progress is the spending state of a budget within one period window.
// Amounts are in minor currency units.
type Progress struct {
	Spent       int64     `json:"spent"`
	Remaining   int64     `json:"remaining"`
	Percentage  int       `json:"percentage"`
	IsExceeded  bool      `json:"is_exceeded"`
	IsWarning   bool      `json:"is_warning"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// ValidateAlertThreshold accepts nil or a percentage in 1..100.
func ValidateAlertThreshold(threshold *int) error {
	if threshold == nil {
		return nil
	}
	if *threshold < 1 || *threshold > 100 {
		return apperrors.WithMessagef(apperrors.ErrInvalidAlertThreshold,
			"alert threshold must be between 1 and 100, got %d", *threshold)
	}
	return nil
}

// Percentage returns round(spent / limit * 100), halves rounded away from
// zero and capped at MaxPercentage. A non-positive limit yields 0.
func Percentage(limit, spent int64) int {
	if limit <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(spent).Mul(hundred).Div(decimal.NewFromInt(limit)).Round(0)
	if pct.GreaterThan(decimal.NewFromInt(MaxPercentage)) {
		return MaxPercentage
	}
	return int(pct.IntPart())
}

// CalculateProgress evaluates spent against limit for the given window.
// Exceeded and warning are mutually exclusive; exceeded wins.
func CalculateProgress(window Range, limit, spent int64, alertThreshold *int) Progress {
	remaining := limit - spent
	if remaining < 0 {
		remaining = 0
	}

	pct := Percentage(limit, spent)
	exceeded := spent > limit

	return Progress{
		Spent:       spent,
		Remaining:   remaining,
		Percentage:  pct,
		IsExceeded:  exceeded,
		IsWarning:   alertThreshold != nil && pct >= *alertThreshold && !exceeded,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
	}
}
