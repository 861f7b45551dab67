package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
	"moneta/internal/repository"
	"moneta/internal/uuid"
)

// MaxPreviewOccurrences caps PreviewRecurring.
const MaxPreviewOccurrences = 100

// recurringService manages recurring transactions in a workspace.
type recurringService struct {
	db   *gorm.DB
	repo repository.RecurringRepository
	now  func() time.Time
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, repo repository.RecurringRepository) RecurringServicer {
	return &recurringService{db: db, repo: repo, now: time.Now}
}

// CreateRecurring validates the input against the workspace's accounts and
// categories and stores a new active recurring transaction.
func (s *recurringService) CreateRecurring(ctx context.Context, workspaceID, userID string, in CreateRecurringInput) (recurring.RecurringTransaction, error) {
	schedule, err := recurrence.NewSchedule(in.Schedule)
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}
	txType, err := recurring.ParseType(in.Type)
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}

	account, err := findAccount(s.db.WithContext(ctx), workspaceID, in.AccountID)
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}
	currency := in.Currency
	if currency == "" {
		currency = account.Currency
	}

	rt, err := recurring.New(recurring.Params{
		ID:            uuid.New(),
		WorkspaceID:   workspaceID,
		AccountID:     account.ID,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Type:          string(txType),
		Amount:        in.Amount,
		Currency:      currency,
		Notes:         in.Notes,
		Schedule:      schedule,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		CreatedBy:     userID,
		Now:           s.now(),
	})
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}

	if err := s.checkReferences(ctx, rt); err != nil {
		return recurring.RecurringTransaction{}, err
	}
	if err := s.repo.Save(ctx, rt); err != nil {
		return recurring.RecurringTransaction{}, err
	}
	return rt, nil
}

// checkReferences verifies that the account and categories of rt exist in
// its workspace and agree with its type and currency.
func (s *recurringService) checkReferences(ctx context.Context, rt recurring.RecurringTransaction) error {
	db := s.db.WithContext(ctx)

	account, err := findAccount(db, rt.WorkspaceID(), rt.AccountID())
	if err != nil {
		return err
	}
	if account.Currency != rt.Currency() {
		return apperrors.WithMessagef(apperrors.ErrInvalidCurrency,
			"currency %s does not match account currency %s", rt.Currency(), account.Currency)
	}

	categoryID := rt.CategoryID()
	var subcategoryID *string
	if sub := rt.SubcategoryID(); sub != "" {
		subcategoryID = &sub
	}
	_, _, err = resolveCategory(db, rt.WorkspaceID(), &categoryID, subcategoryID, models.CategoryType(rt.Type()))
	return err
}

// GetWorkspaceRecurring lists recurring transactions ordered by next run.
func (s *recurringService) GetWorkspaceRecurring(
	ctx context.Context,
	workspaceID string,
	status *recurring.Status,
	page pagination.PageRequest,
) (*pagination.PageResponse[recurring.Primitives], error) {
	page.Defaults()

	items, total, err := s.repo.FindByWorkspaceID(ctx, workspaceID, repository.RecurringFilter{Status: status}, page)
	if err != nil {
		return nil, err
	}

	result := pagination.MapPage(items, recurring.RecurringTransaction.ToPrimitives, page, total)
	return &result, nil
}

// GetRecurringByID retrieves a recurring transaction in a workspace
func (s *recurringService) GetRecurringByID(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	return s.repo.FindByID(ctx, workspaceID, id)
}

// UpdateRecurring applies a partial update. Schedule fields are merged onto
// the current schedule before validation.
func (s *recurringService) UpdateRecurring(ctx context.Context, workspaceID, id string, in UpdateRecurringInput) (recurring.RecurringTransaction, error) {
	current, err := s.repo.FindByID(ctx, workspaceID, id)
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}

	patch := recurring.Patch{
		AccountID:     in.AccountID,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Notes:         in.Notes,
		EndDate:       in.EndDate,
		ClearEndDate:  in.ClearEndDate,
	}
	if in.Schedule != nil {
		schedule, err := recurrence.NewSchedule(mergeSchedule(current.Schedule().Params(), *in.Schedule))
		if err != nil {
			return recurring.RecurringTransaction{}, err
		}
		patch.Schedule = &schedule
	}

	updated, err := current.Update(patch, s.now())
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}

	if in.AccountID != nil || in.CategoryID != nil || in.SubcategoryID != nil || in.Currency != nil {
		if err := s.checkReferences(ctx, updated); err != nil {
			return recurring.RecurringTransaction{}, err
		}
	}

	if err := s.repo.Update(ctx, updated, current.NextRunDate()); err != nil {
		return recurring.RecurringTransaction{}, err
	}
	return updated, nil
}

func mergeSchedule(base recurrence.ScheduleParams, patch SchedulePatch) recurrence.ScheduleParams {
	if patch.Frequency != nil {
		base.Frequency = *patch.Frequency
	}
	if patch.Interval != nil {
		base.Interval = *patch.Interval
	}
	if patch.DayOfWeek != nil {
		base.DayOfWeek = patch.DayOfWeek
	}
	if patch.DayOfMonth != nil {
		base.DayOfMonth = patch.DayOfMonth
	}
	if patch.MonthOfYear != nil {
		base.MonthOfYear = patch.MonthOfYear
	}
	return base
}

// PauseRecurring stops an active recurring transaction from running.
func (s *recurringService) PauseRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	return s.transition(ctx, workspaceID, id, func(rt recurring.RecurringTransaction, now time.Time) (recurring.RecurringTransaction, error) {
		return rt.Pause(now)
	})
}

// ResumeRecurring reactivates a paused recurring transaction.
func (s *recurringService) ResumeRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	return s.transition(ctx, workspaceID, id, func(rt recurring.RecurringTransaction, now time.Time) (recurring.RecurringTransaction, error) {
		return rt.Resume(now)
	})
}

// ArchiveRecurring archives a recurring transaction. Archiving twice is a no-op.
func (s *recurringService) ArchiveRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	return s.transition(ctx, workspaceID, id, func(rt recurring.RecurringTransaction, now time.Time) (recurring.RecurringTransaction, error) {
		if rt.IsArchived() {
			return rt, nil
		}
		return rt.Archive(now), nil
	})
}

func (s *recurringService) transition(
	ctx context.Context,
	workspaceID, id string,
	fn func(recurring.RecurringTransaction, time.Time) (recurring.RecurringTransaction, error),
) (recurring.RecurringTransaction, error) {
	current, err := s.repo.FindByID(ctx, workspaceID, id)
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}

	next, err := fn(current, s.now())
	if err != nil {
		return recurring.RecurringTransaction{}, err
	}
	if next.Status() == current.Status() && next.UpdatedAt().Equal(current.UpdatedAt()) {
		return next, nil
	}

	if err := s.repo.Update(ctx, next, current.NextRunDate()); err != nil {
		return recurring.RecurringTransaction{}, err
	}
	return next, nil
}

// PreviewRecurring returns up to n upcoming run dates starting with the
// next run date, stopping at the end date. Archived transactions have none.
func (s *recurringService) PreviewRecurring(ctx context.Context, workspaceID, id string, n int) ([]time.Time, error) {
	if n < 1 || n > MaxPreviewOccurrences {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidInput, "count must be between 1 and %d", MaxPreviewOccurrences)
	}

	rt, err := s.repo.FindByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	return PreviewSchedule(rt.Schedule(), rt.NextRunDate(), rt.EndDate(), n, rt.IsArchived()), nil
}

// PreviewSchedule lists up to n run dates beginning at next and not after end.
func PreviewSchedule(schedule recurrence.Schedule, next time.Time, end *time.Time, n int, archived bool) []time.Time {
	out := []time.Time{}
	if archived || n <= 0 {
		return out
	}

	dates := append([]time.Time{next}, schedule.Occurrences(next, n-1)...)
	for _, d := range dates {
		if end != nil && d.After(*end) {
			break
		}
		out = append(out, d)
	}
	return out
}
