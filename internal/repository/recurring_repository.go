// Package repository persists recurring transactions with GORM.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/recurring"
)

// RecurringFilter narrows FindByWorkspaceID.
type RecurringFilter struct {
	Status *recurring.Status
}

// DueRecord is one row returned by FindDue. Err is set when the stored row
// could not be rebuilt into a valid RecurringTransaction.
type DueRecord struct {
	ID          string
	Transaction recurring.RecurringTransaction
	Err         error
}

// RecurringRepository stores recurring transactions.
type RecurringRepository interface {
	Save(ctx context.Context, rt recurring.RecurringTransaction) error
	Update(ctx context.Context, rt recurring.RecurringTransaction, expectedNextRun time.Time) error
	AdvanceIfUnchanged(ctx context.Context, rt recurring.RecurringTransaction, expectedNextRun time.Time) (bool, error)
	FindByID(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)
	FindByWorkspaceID(ctx context.Context, workspaceID string, filter RecurringFilter, page pagination.PageRequest) ([]recurring.RecurringTransaction, int64, error)
	FindDue(ctx context.Context, workspaceID string, asOf time.Time) ([]DueRecord, error)
	DueWorkspaceIDs(ctx context.Context, asOf time.Time) ([]string, error)
}

type recurringRepository struct {
	db *gorm.DB
}

// NewRecurringRepository creates a GORM-backed RecurringRepository.
func NewRecurringRepository(db *gorm.DB) RecurringRepository {
	return &recurringRepository{db: db}
}

// Times are stored in UTC so that the conditional update in
// AdvanceIfUnchanged compares identical representations on every driver.
func toRow(rt recurring.RecurringTransaction) *models.RecurringTransaction {
	m := models.RecurringTransactionFromDomain(rt)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.StartDate = m.StartDate.UTC()
	m.NextRunDate = m.NextRunDate.UTC()
	m.EndDate = utcPtr(m.EndDate)
	m.LastRunDate = utcPtr(m.LastRunDate)
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (r *recurringRepository) Save(ctx context.Context, rt recurring.RecurringTransaction) error {
	if err := r.db.WithContext(ctx).Create(toRow(rt)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

var updatableColumns = []string{
	"AccountID", "CategoryID", "SubcategoryID", "Amount", "Currency", "Notes",
	"Frequency", "Interval", "DayOfWeek", "DayOfMonth", "MonthOfYear",
	"EndDate", "NextRunDate", "LastRunDate", "Status", "UpdatedAt",
}

// Update writes the user-editable state of rt only if the stored next run
// date still equals expectedNextRun, the value rt was read with. A row the
// processor advanced in between yields ErrConcurrentModification.
func (r *recurringRepository) Update(ctx context.Context, rt recurring.RecurringTransaction, expectedNextRun time.Time) error {
	m := toRow(rt)
	db := r.db.WithContext(ctx)
	res := db.Model(&models.RecurringTransaction{}).
		Where("id = ? AND workspace_id = ? AND next_run_date = ?", m.ID, m.WorkspaceID, expectedNextRun.UTC()).
		Select(updatableColumns).
		Updates(m)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.RecurringTransaction{}).
		Where("id = ? AND workspace_id = ?", m.ID, m.WorkspaceID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrRecurringNotFound
	}
	return apperrors.ErrConcurrentModification
}

// AdvanceIfUnchanged writes the processed state of rt only if the stored
// next run date still equals expectedNextRun. It reports false when another
// worker advanced the row first.
func (r *recurringRepository) AdvanceIfUnchanged(ctx context.Context, rt recurring.RecurringTransaction, expectedNextRun time.Time) (bool, error) {
	m := toRow(rt)
	res := r.db.WithContext(ctx).
		Model(&models.RecurringTransaction{}).
		Where("id = ? AND next_run_date = ? AND status = ?", m.ID, expectedNextRun.UTC(), recurring.StatusActive).
		Select("NextRunDate", "LastRunDate", "Status", "UpdatedAt").
		Updates(m)
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *recurringRepository) FindByID(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	var m models.RecurringTransaction
	err := r.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recurring.RecurringTransaction{}, apperrors.ErrRecurringNotFound
		}
		return recurring.RecurringTransaction{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rt, err := m.ToDomain()
	if err != nil {
		return recurring.RecurringTransaction{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rt, nil
}

func (r *recurringRepository) FindByWorkspaceID(
	ctx context.Context,
	workspaceID string,
	filter RecurringFilter,
	page pagination.PageRequest,
) ([]recurring.RecurringTransaction, int64, error) {
	page.Defaults()

	base := r.db.WithContext(ctx).Model(&models.RecurringTransaction{}).Where("workspace_id = ?", workspaceID)
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rows []models.RecurringTransaction
	if err := base.Order("next_run_date ASC, id ASC").Scopes(pagination.Paginate(page)).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	out := make([]recurring.RecurringTransaction, 0, len(rows))
	for i := range rows {
		rt, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		out = append(out, rt)
	}
	return out, total, nil
}

// FindDue returns the active rows of a workspace whose next run is at or
// before asOf, oldest first.
func (r *recurringRepository) FindDue(ctx context.Context, workspaceID string, asOf time.Time) ([]DueRecord, error) {
	var rows []models.RecurringTransaction
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND status = ? AND next_run_date <= ?", workspaceID, recurring.StatusActive, asOf.UTC()).
		Order("next_run_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	out := make([]DueRecord, 0, len(rows))
	for i := range rows {
		rt, err := rows[i].ToDomain()
		out = append(out, DueRecord{ID: rows[i].ID, Transaction: rt, Err: err})
	}
	return out, nil
}

// DueWorkspaceIDs lists workspaces with at least one due row.
func (r *recurringRepository) DueWorkspaceIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.RecurringTransaction{}).
		Where("status = ? AND next_run_date <= ?", recurring.StatusActive, asOf.UTC()).
		Distinct().
		Order("workspace_id").
		Pluck("workspace_id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}
