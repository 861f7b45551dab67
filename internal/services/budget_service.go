package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"moneta/internal/budgeting"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/money"
	"moneta/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db, now: time.Now}
}

// CreateBudget creates a budget on an expense category, optionally narrowed
// to one of its subcategories.
func (s *budgetService) CreateBudget(ctx context.Context, workspaceID, userID string, in CreateBudgetInput) (*models.Budget, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if err := money.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	period, err := budgeting.ParsePeriod(in.Period)
	if err != nil {
		return nil, err
	}
	if err := budgeting.ValidateAlertThreshold(in.AlertThreshold); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var category models.Category
	if err := db.Where("id = ? AND workspace_id = ?", in.CategoryID, workspaceID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets can only track expense categories")
	}
	if category.IsSubcategory() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget category must be top-level; use subcategory_id to narrow it")
	}

	var subcategoryID *string
	if in.SubcategoryID != nil && *in.SubcategoryID != "" {
		var sub models.Category
		if err := db.Where("id = ? AND workspace_id = ?", *in.SubcategoryID, workspaceID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "subcategory not found")
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if sub.ParentID == nil || *sub.ParentID != category.ID {
			return nil, apperrors.ErrBudgetCategoryMismatch
		}
		subcategoryID = &sub.ID
	}

	budget := &models.Budget{
		WorkspaceID:    workspaceID,
		CreatedBy:      userID,
		CategoryID:     category.ID,
		SubcategoryID:  subcategoryID,
		Name:           name,
		Amount:         in.Amount,
		Currency:       currency,
		Period:         period,
		StartDate:      in.StartDate.UTC(),
		AlertThreshold: in.AlertThreshold,
	}

	if err := db.Omit("Category").Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetWorkspaceBudgets retrieves a paginated list of budgets with optional filters.
func (s *budgetService) GetWorkspaceBudgets(
	ctx context.Context,
	workspaceID string,
	page pagination.PageRequest,
	filter BudgetFilter,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Budget{}).Where("workspace_id = ?", workspaceID)
	if filter.IsArchived != nil {
		base = base.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.Period != nil {
		base = base.Where("period = ?", *filter.Period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget in a workspace
func (s *budgetService) GetBudgetByID(ctx context.Context, workspaceID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", budgetID, workspaceID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates name, amount and alert threshold of a budget.
func (s *budgetService) UpdateBudget(ctx context.Context, workspaceID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, workspaceID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name cannot be empty")
		}
		updates["name"] = name
	}
	if fields.Amount != nil {
		if err := money.ValidateAmount(*fields.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *fields.Amount
	}
	if fields.AlertThreshold != nil {
		if err := budgeting.ValidateAlertThreshold(fields.AlertThreshold); err != nil {
			return nil, err
		}
		updates["alert_threshold"] = *fields.AlertThreshold
	}

	if len(updates) > 0 {
		db := s.db.WithContext(ctx)
		if err := db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := db.Where("id = ?", budget.ID).First(budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// ArchiveBudget marks a budget archived. Archiving twice is a no-op.
func (s *budgetService) ArchiveBudget(ctx context.Context, workspaceID, budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, workspaceID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.IsArchived {
		return budget, nil
	}

	if err := s.db.WithContext(ctx).Model(budget).Update("is_archived", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	budget.IsArchived = true
	return budget, nil
}

// GetBudgetProgress calculates spending vs budget for the current period.
func (s *budgetService) GetBudgetProgress(ctx context.Context, workspaceID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(ctx, workspaceID, budgetID)
	if err != nil {
		return nil, err
	}

	window := budget.Period.CurrentRange(budget.StartDate, s.now().UTC())

	spent, err := s.spentInRange(ctx, budget, window)
	if err != nil {
		return nil, err
	}

	return &BudgetProgress{
		BudgetID: budget.ID,
		Budgeted: budget.Amount,
		Progress: budgeting.CalculateProgress(window, budget.Amount, spent, budget.AlertThreshold),
	}, nil
}

// spentInRange sums non-archived expenses counted against budget within window.
func (s *budgetService) spentInRange(ctx context.Context, budget *models.Budget, window budgeting.Range) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("workspace_id = ? AND type = ? AND is_archived = ? AND date BETWEEN ? AND ?",
			budget.WorkspaceID, models.TransactionTypeExpense, false, window.Start, window.End)
	if budget.SubcategoryID != nil && *budget.SubcategoryID != "" {
		q = q.Where("subcategory_id = ?", budget.SpendCategoryID())
	} else {
		q = q.Where("category_id = ?", budget.SpendCategoryID())
	}

	var spent int64
	if err := q.Scan(&spent).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}
