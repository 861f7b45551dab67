package models

import (
	"time"

	"moneta/internal/recurrence"
	"moneta/internal/recurring"
)

// RecurringTransaction is the persisted form of recurring.RecurringTransaction.
// The schedule is stored flattened; ToDomain revalidates it.
type RecurringTransaction struct {
	Base
	WorkspaceID   string           `gorm:"type:uuid;not null;index:idx_recurring_due,priority:1"`
	AccountID     string           `gorm:"type:uuid;not null"`
	CategoryID    string           `gorm:"type:uuid;not null"`
	SubcategoryID *string          `gorm:"type:uuid"`
	Type          recurring.Type   `gorm:"not null"`
	Amount        int64            `gorm:"type:bigint;not null"`
	Currency      string           `gorm:"size:3;not null"`
	Notes         string
	Frequency     string           `gorm:"not null"`
	Interval      int              `gorm:"column:interval_count;not null"`
	DayOfWeek     *int
	DayOfMonth    *int
	MonthOfYear   *int
	StartDate     time.Time        `gorm:"not null"`
	EndDate       *time.Time
	NextRunDate   time.Time        `gorm:"not null;index:idx_recurring_due,priority:3"`
	LastRunDate   *time.Time
	Status        recurring.Status `gorm:"not null;index:idx_recurring_due,priority:2"`
	CreatedBy     string           `gorm:"type:uuid;not null"`
}

// RecurringTransactionFromDomain converts a domain value for persistence.
func RecurringTransactionFromDomain(rt recurring.RecurringTransaction) *RecurringTransaction {
	p := rt.ToPrimitives()
	m := &RecurringTransaction{
		Base: Base{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		WorkspaceID: p.WorkspaceID,
		AccountID:   p.AccountID,
		CategoryID:  p.CategoryID,
		Type:        p.Type,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Notes:       p.Notes,
		Frequency:   string(p.Frequency),
		Interval:    p.Interval,
		DayOfWeek:   p.DayOfWeek,
		DayOfMonth:  p.DayOfMonth,
		MonthOfYear: p.MonthOfYear,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		NextRunDate: p.NextRunDate,
		LastRunDate: p.LastRunDate,
		Status:      p.Status,
		CreatedBy:   p.CreatedBy,
	}
	if p.SubcategoryID != "" {
		sub := p.SubcategoryID
		m.SubcategoryID = &sub
	}
	return m
}

// ToDomain rebuilds the domain value.
func (m *RecurringTransaction) ToDomain() (recurring.RecurringTransaction, error) {
	p := recurring.Primitives{
		ID:          m.ID,
		WorkspaceID: m.WorkspaceID,
		AccountID:   m.AccountID,
		CategoryID:  m.CategoryID,
		Type:        m.Type,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Notes:       m.Notes,
		SchedulePrimitives: recurrence.SchedulePrimitives{
			Frequency:   recurrence.Frequency(m.Frequency),
			Interval:    m.Interval,
			DayOfWeek:   m.DayOfWeek,
			DayOfMonth:  m.DayOfMonth,
			MonthOfYear: m.MonthOfYear,
		},
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		NextRunDate: m.NextRunDate,
		LastRunDate: m.LastRunDate,
		Status:      m.Status,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.SubcategoryID != nil {
		p.SubcategoryID = *m.SubcategoryID
	}
	return recurring.Restore(p)
}
