// Package recurring models a recurring transaction: a schedule plus the
// lifecycle that decides when the next ledger entry is due. Values are
// immutable; every operation returns an updated copy.
package recurring

import (
	"strings"
	"time"

	apperrors "moneta/internal/errors"
	"moneta/internal/money"
	"moneta/internal/recurrence"
)

// Status is the lifecycle state of a recurring transaction.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusPaused, StatusArchived:
		return st, nil
	}
	return "", apperrors.WithMessagef(apperrors.ErrInvalidInput,
		"invalid status %q: must be one of active, paused, archived", s)
}

// Type is the ledger direction of the generated transactions.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// ParseType accepts income and expense. Transfers cannot recur.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeIncome, TypeExpense:
		return t, nil
	case "transfer":
		return "", apperrors.WithMessage(apperrors.ErrInvalidRecurringType,
			"recurring transactions cannot be transfers; use income or expense")
	}
	return "", apperrors.WithMessagef(apperrors.ErrInvalidRecurringType,
		"invalid type %q: must be income or expense", s)
}

// ProcessOptions tunes Process.
type ProcessOptions struct {
	// AutoPauseAtEnd pauses the transaction once the advanced run date
	// passes its end date.
	AutoPauseAtEnd bool
}

// DefaultProcessOptions returns the options used when none are configured.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{AutoPauseAtEnd: true}
}

// Params is the input for New.
type Params struct {
	ID            string
	WorkspaceID   string
	AccountID     string
	CategoryID    string
	SubcategoryID string
	Type          string
	Amount        int64
	Currency      string
	Notes         string
	Schedule      recurrence.Schedule
	StartDate     time.Time
	EndDate       *time.Time
	CreatedBy     string
	Now           time.Time
}

// RecurringTransaction is a scheduled income or expense owned by a workspace.
type RecurringTransaction struct {
	id            string
	workspaceID   string
	accountID     string
	categoryID    string
	subcategoryID string
	txType        Type
	amount        int64
	currency      string
	notes         string
	schedule      recurrence.Schedule
	startDate     time.Time
	endDate       *time.Time
	nextRunDate   time.Time
	lastRunDate   *time.Time
	status        Status
	createdBy     string
	createdAt     time.Time
	updatedAt     time.Time
}

// New validates p and returns an active recurring transaction whose first
// run is the schedule's first on-cadence date at or after the start date.
func New(p Params) (RecurringTransaction, error) {
	txType, err := ParseType(p.Type)
	if err != nil {
		return RecurringTransaction{}, err
	}
	if p.ID == "" || p.WorkspaceID == "" || p.AccountID == "" || p.CategoryID == "" {
		return RecurringTransaction{}, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"id, workspace, account and category are required")
	}
	if p.Schedule.IsZero() {
		return RecurringTransaction{}, apperrors.WithMessage(apperrors.ErrInvalidSchedule, "schedule is required")
	}
	if p.StartDate.IsZero() {
		return RecurringTransaction{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if err := money.ValidateAmount(p.Amount); err != nil {
		return RecurringTransaction{}, err
	}
	if err := money.ValidateCurrency(p.Currency); err != nil {
		return RecurringTransaction{}, err
	}
	if err := validateDateRange(p.StartDate, p.EndDate); err != nil {
		return RecurringTransaction{}, err
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	return RecurringTransaction{
		id:            p.ID,
		workspaceID:   p.WorkspaceID,
		accountID:     p.AccountID,
		categoryID:    p.CategoryID,
		subcategoryID: p.SubcategoryID,
		txType:        txType,
		amount:        p.Amount,
		currency:      p.Currency,
		notes:         p.Notes,
		schedule:      p.Schedule,
		startDate:     p.StartDate,
		endDate:       copyTime(p.EndDate),
		nextRunDate:   p.Schedule.FirstRunDate(p.StartDate),
		status:        StatusActive,
		createdBy:     p.CreatedBy,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func validateDateRange(start time.Time, end *time.Time) error {
	if end != nil && !end.After(start) {
		return apperrors.WithMessagef(apperrors.ErrInvalidDateRange,
			"end date %s must be after start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r RecurringTransaction) ID() string                    { return r.id }
func (r RecurringTransaction) WorkspaceID() string           { return r.workspaceID }
func (r RecurringTransaction) AccountID() string             { return r.accountID }
func (r RecurringTransaction) CategoryID() string            { return r.categoryID }
func (r RecurringTransaction) SubcategoryID() string         { return r.subcategoryID }
func (r RecurringTransaction) Type() Type                    { return r.txType }
func (r RecurringTransaction) Amount() int64                 { return r.amount }
func (r RecurringTransaction) Currency() string              { return r.currency }
func (r RecurringTransaction) Notes() string                 { return r.notes }
func (r RecurringTransaction) Schedule() recurrence.Schedule { return r.schedule }
func (r RecurringTransaction) StartDate() time.Time          { return r.startDate }
func (r RecurringTransaction) EndDate() *time.Time           { return copyTime(r.endDate) }
func (r RecurringTransaction) NextRunDate() time.Time        { return r.nextRunDate }
func (r RecurringTransaction) LastRunDate() *time.Time       { return copyTime(r.lastRunDate) }
func (r RecurringTransaction) Status() Status                { return r.status }
func (r RecurringTransaction) CreatedBy() string             { return r.createdBy }
func (r RecurringTransaction) CreatedAt() time.Time          { return r.createdAt }
func (r RecurringTransaction) UpdatedAt() time.Time          { return r.updatedAt }

func (r RecurringTransaction) IsActive() bool   { return r.status == StatusActive }
func (r RecurringTransaction) IsArchived() bool { return r.status == StatusArchived }

// IsExhausted reports whether the next run falls after the end date.
func (r RecurringTransaction) IsExhausted() bool {
	return r.endDate != nil && r.nextRunDate.After(*r.endDate)
}

// IsDue reports whether Process would succeed as of asOf.
func (r RecurringTransaction) IsDue(asOf time.Time) bool {
	return r.IsActive() && !r.IsExhausted() && !r.nextRunDate.After(asOf)
}

// Pause moves an active transaction to paused.
func (r RecurringTransaction) Pause(now time.Time) (RecurringTransaction, error) {
	switch r.status {
	case StatusArchived:
		return r, apperrors.ErrRecurringArchived
	case StatusPaused:
		return r, apperrors.ErrRecurringAlreadyPaused
	}
	r.status = StatusPaused
	r.updatedAt = now
	return r, nil
}

// Resume moves a paused transaction back to active.
func (r RecurringTransaction) Resume(now time.Time) (RecurringTransaction, error) {
	switch r.status {
	case StatusArchived:
		return r, apperrors.ErrRecurringArchived
	case StatusActive:
		return r, apperrors.ErrRecurringAlreadyActive
	}
	r.status = StatusActive
	r.updatedAt = now
	return r, nil
}

// Archive soft-deletes the transaction. Archiving twice is a no-op.
func (r RecurringTransaction) Archive(now time.Time) RecurringTransaction {
	if r.status == StatusArchived {
		return r
	}
	r.status = StatusArchived
	r.updatedAt = now
	return r
}

// Process records the due occurrence and advances the schedule by one step.
// It returns the advanced transaction and the occurrence date, which is the
// run date before advancing.
func (r RecurringTransaction) Process(asOf time.Time, opts ProcessOptions) (RecurringTransaction, time.Time, error) {
	switch r.status {
	case StatusArchived:
		return r, time.Time{}, apperrors.ErrRecurringArchived
	case StatusPaused:
		return r, time.Time{}, apperrors.ErrRecurringNotActive
	}
	if r.IsExhausted() {
		return r, time.Time{}, apperrors.WithMessage(apperrors.ErrRecurringNotDue, "recurring transaction has passed its end date")
	}
	if r.nextRunDate.After(asOf) {
		return r, time.Time{}, apperrors.WithMessagef(apperrors.ErrRecurringNotDue,
			"next run is %s", r.nextRunDate.Format(time.RFC3339))
	}

	occurrence := r.nextRunDate
	r.lastRunDate = &occurrence
	r.nextRunDate = r.schedule.NextRunDate(occurrence)
	if opts.AutoPauseAtEnd && r.IsExhausted() {
		r.status = StatusPaused
	}
	r.updatedAt = asOf
	return r, occurrence, nil
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	AccountID     *string
	CategoryID    *string
	SubcategoryID *string // empty string clears it
	Amount        *int64
	Currency      *string
	Notes         *string
	Schedule      *recurrence.Schedule
	EndDate       *time.Time
	ClearEndDate  bool
}

// Update applies patch and returns the result. Changing the schedule
// recomputes the next run date from the last run, or from the start date
// when the transaction never ran.
func (r RecurringTransaction) Update(patch Patch, now time.Time) (RecurringTransaction, error) {
	if r.status == StatusArchived {
		return r, apperrors.ErrRecurringArchived
	}

	next := r
	if patch.AccountID != nil {
		if *patch.AccountID == "" {
			return r, apperrors.WithMessage(apperrors.ErrInvalidInput, "account is required")
		}
		next.accountID = *patch.AccountID
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == "" {
			return r, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
		}
		next.categoryID = *patch.CategoryID
	}
	if patch.SubcategoryID != nil {
		next.subcategoryID = *patch.SubcategoryID
	}
	if patch.Amount != nil {
		if err := money.ValidateAmount(*patch.Amount); err != nil {
			return r, err
		}
		next.amount = *patch.Amount
	}
	if patch.Currency != nil {
		if err := money.ValidateCurrency(*patch.Currency); err != nil {
			return r, err
		}
		next.currency = *patch.Currency
	}
	if patch.Notes != nil {
		next.notes = *patch.Notes
	}
	if patch.ClearEndDate {
		next.endDate = nil
	} else if patch.EndDate != nil {
		if err := validateDateRange(next.startDate, patch.EndDate); err != nil {
			return r, err
		}
		next.endDate = copyTime(patch.EndDate)
	}
	if patch.Schedule != nil && !patch.Schedule.Equal(r.schedule) {
		if patch.Schedule.IsZero() {
			return r, apperrors.WithMessage(apperrors.ErrInvalidSchedule, "schedule is required")
		}
		next.schedule = *patch.Schedule
		if next.lastRunDate != nil {
			next.nextRunDate = next.schedule.NextRunDate(*next.lastRunDate)
		} else {
			next.nextRunDate = next.schedule.FirstRunDate(next.startDate)
		}
	}

	next.updatedAt = now
	return next, nil
}
