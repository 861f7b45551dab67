package budgeting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "moneta/internal/errors"
)

func endOf(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 23, 59, 59, 999999999, loc)
}

func TestParsePeriod(t *testing.T) {
	for _, p := range Periods() {
		got, err := ParsePeriod(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePeriod("daily")
	require.ErrorIs(t, err, apperrors.ErrInvalidBudgetPeriod)
	assert.Contains(t, err.Error(), "weekly, monthly, yearly")
}

func TestCurrentRange_Weekly(t *testing.T) {
	anchor := time.Date(2025, time.January, 1, 14, 0, 0, 0, time.UTC) // Wednesday

	t.Run("now on anchor weekday", func(t *testing.T) {
		now := time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC) // Wednesday
		r := PeriodWeekly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.March, 18, time.UTC), r.End)
	})

	t.Run("now before anchor weekday steps back", func(t *testing.T) {
		now := time.Date(2025, time.March, 11, 23, 0, 0, 0, time.UTC) // Tuesday
		r := PeriodWeekly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.March, 11, time.UTC), r.End)
	})
}

func TestCurrentRange_Monthly(t *testing.T) {
	t.Run("anchor 15 with now on the 10th uses previous month", func(t *testing.T) {
		anchor := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

		r := PeriodMonthly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.March, 14, time.UTC), r.End)
	})

	t.Run("anchor day reached this month", func(t *testing.T) {
		anchor := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

		r := PeriodMonthly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.April, 14, time.UTC), r.End)
	})

	t.Run("january wraps to previous december", func(t *testing.T) {
		anchor := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)

		r := PeriodMonthly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.January, 19, time.UTC), r.End)
	})

	t.Run("anchor 31 clamps in short months", func(t *testing.T) {
		anchor := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

		r := PeriodMonthly.CurrentRange(anchor, time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.March, 30, time.UTC), r.End)

		r = PeriodMonthly.CurrentRange(anchor, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), r.Start)

		r = PeriodMonthly.CurrentRange(anchor, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.April, 29, time.UTC), r.End)
	})
}

func TestCurrentRange_Yearly(t *testing.T) {
	t.Run("anniversary not yet reached", func(t *testing.T) {
		anchor := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

		r := PeriodYearly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2025, time.May, 31, time.UTC), r.End)
	})

	t.Run("leap day anchor clamps", func(t *testing.T) {
		anchor := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

		r := PeriodYearly.CurrentRange(anchor, now)
		assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, endOf(2026, time.February, 27, time.UTC), r.End)
	})
}

func TestCurrentRange_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2025-03-14 20:00 UTC is already the 15th in UTC+9.
	anchor := time.Date(2025, time.January, 15, 0, 0, 0, 0, loc)
	now := time.Date(2025, time.March, 14, 20, 0, 0, 0, time.UTC).In(loc)

	r := PeriodMonthly.CurrentRange(anchor, now)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, loc), r.Start)
	assert.Equal(t, loc, r.Start.Location())
}

func TestCurrentRange_ContainsNow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("UTC-8", -8*3600),
		time.FixedZone("UTC+5:30", 5*3600+1800),
		time.FixedZone("UTC+14", 14*3600),
	}
	base := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	span := int64(40 * 365 * 24 * time.Hour)

	for _, period := range Periods() {
		t.Run(string(period), func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				loc := zones[rng.Intn(len(zones))]
				anchor := base.Add(time.Duration(rng.Int63n(span))).In(loc)
				now := anchor.Add(time.Duration(rng.Int63n(int64(5 * 365 * 24 * time.Hour))))

				r := period.CurrentRange(anchor, now)
				require.Truef(t, r.Contains(now), "anchor=%s now=%s range=%s..%s", anchor, now, r.Start, r.End)
				require.True(t, r.Start.Before(r.End))
				assert.Equal(t, 0, r.Start.Hour()+r.Start.Minute()+r.Start.Second()+r.Start.Nanosecond())

				if period == PeriodWeekly {
					assert.Equal(t, anchor.In(now.Location()).Weekday(), r.Start.Weekday())
					assert.Equal(t, r.Start.AddDate(0, 0, 7), r.End.Add(time.Nanosecond))
				}
			}
		})
	}
}

func TestCurrentRange_Contiguous(t *testing.T) {
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 24; i++ {
		r := PeriodMonthly.CurrentRange(anchor, now)
		next := PeriodMonthly.CurrentRange(anchor, r.End.Add(time.Nanosecond))
		require.Equal(t, r.End.Add(time.Nanosecond), next.Start)
		now = next.Start
	}
}
