package recurring

import (
	"time"

	apperrors "moneta/internal/errors"
	"moneta/internal/recurrence"
)

// Primitives is the plain-data projection of a RecurringTransaction, used for
// JSON responses and persistence.
type Primitives struct {
	ID            string `json:"id"`
	WorkspaceID   string `json:"workspace_id"`
	AccountID     string `json:"account_id"`
	CategoryID    string `json:"category_id"`
	SubcategoryID string `json:"subcategory_id,omitempty"`
	Type          Type   `json:"type"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Notes         string `json:"notes,omitempty"`

	recurrence.SchedulePrimitives

	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	NextRunDate time.Time  `json:"next_run_date"`
	LastRunDate *time.Time `json:"last_run_date,omitempty"`
	Status      Status     `json:"status"`
	IsActive    bool       `json:"is_active"`
	IsArchived  bool       `json:"is_archived"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToPrimitives returns the plain-data projection of r.
func (r RecurringTransaction) ToPrimitives() Primitives {
	return Primitives{
		ID:                 r.id,
		WorkspaceID:        r.workspaceID,
		AccountID:          r.accountID,
		CategoryID:         r.categoryID,
		SubcategoryID:      r.subcategoryID,
		Type:               r.txType,
		Amount:             r.amount,
		Currency:           r.currency,
		Notes:              r.notes,
		SchedulePrimitives: r.schedule.ToPrimitives(),
		StartDate:          r.startDate,
		EndDate:            copyTime(r.endDate),
		NextRunDate:        r.nextRunDate,
		LastRunDate:        copyTime(r.lastRunDate),
		Status:             r.status,
		IsActive:           r.status == StatusActive,
		IsArchived:         r.status == StatusArchived,
		CreatedBy:          r.createdBy,
		CreatedAt:          r.createdAt,
		UpdatedAt:          r.updatedAt,
	}
}

// Restore rebuilds a RecurringTransaction from stored primitives. The schedule
// is revalidated so a corrupt row surfaces as an error instead of a bad date.
func Restore(p Primitives) (RecurringTransaction, error) {
	schedule, err := recurrence.NewSchedule(recurrence.ScheduleParams{
		Frequency:   string(p.Frequency),
		Interval:    p.Interval,
		DayOfWeek:   p.DayOfWeek,
		DayOfMonth:  p.DayOfMonth,
		MonthOfYear: p.MonthOfYear,
	})
	if err != nil {
		return RecurringTransaction{}, err
	}
	if p.Type != TypeIncome && p.Type != TypeExpense {
		return RecurringTransaction{}, apperrors.WithMessagef(apperrors.ErrInvalidRecurringType,
			"stored recurring transaction %s has type %q", p.ID, p.Type)
	}
	status, err := ParseStatus(string(p.Status))
	if err != nil {
		return RecurringTransaction{}, err
	}

	return RecurringTransaction{
		id:            p.ID,
		workspaceID:   p.WorkspaceID,
		accountID:     p.AccountID,
		categoryID:    p.CategoryID,
		subcategoryID: p.SubcategoryID,
		txType:        p.Type,
		amount:        p.Amount,
		currency:      p.Currency,
		notes:         p.Notes,
		schedule:      schedule,
		startDate:     p.StartDate,
		endDate:       copyTime(p.EndDate),
		nextRunDate:   p.NextRunDate,
		lastRunDate:   copyTime(p.LastRunDate),
		status:        status,
		createdBy:     p.CreatedBy,
		createdAt:     p.CreatedAt,
		updatedAt:     p.UpdatedAt,
	}, nil
}
