package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moneta/internal/budgeting"
	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// WorkspaceServicer defines the contract for workspaces and their members.
type WorkspaceServicer interface {
	CreateWorkspace(ctx context.Context, ownerID, name, description string) (*models.Workspace, error)
	GetUserWorkspaces(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Workspace], error)
	GetMemberRole(ctx context.Context, workspaceID, userID string) (models.WorkspaceRole, error)
	AddMember(ctx context.Context, workspaceID, email string, role models.WorkspaceRole) (*models.WorkspaceMember, error)
	GetMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error)
}

// AccountUpdateFields holds the optional fields accepted by UpdateAccount.
type AccountUpdateFields struct {
	Name        *string
	Description *string
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(ctx context.Context, workspaceID, userID, name, description string, accountType models.AccountType, currency string, initialBalance int64) (*models.Account, error)
	GetWorkspaceAccounts(ctx context.Context, workspaceID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(ctx context.Context, workspaceID, accountID string) (*models.Account, error)
	UpdateAccount(ctx context.Context, workspaceID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	UpdateAccountBalance(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount int64) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, workspaceID, name string, categoryType models.CategoryType, description, icon, color string, parentID *string) (*models.Category, error)
	GetWorkspaceCategories(ctx context.Context, workspaceID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, workspaceID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, workspaceID, categoryID, name, description, icon, color string, parentID *string) (*models.Category, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate        *time.Time
	ToDate          *time.Time
	Type            *models.TransactionType
	CategoryID      *string
	AccountID       *string
	IncludeArchived bool
}

// CreateTransactionInput describes a ledger write. ToAccountID is required
// for transfers and ignored otherwise.
type CreateTransactionInput struct {
	AccountID     string
	ToAccountID   *string
	CategoryID    *string
	SubcategoryID *string
	Type          models.TransactionType
	Amount        int64
	Description   string
	Date          time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, workspaceID, userID string, in CreateTransactionInput) (*models.Transaction, error)
	CreateFromDue(ctx context.Context, evt events.TransactionDue) (*models.Transaction, error)
	GetWorkspaceTransactions(ctx context.Context, workspaceID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, workspaceID, transactionID string) (*models.Transaction, error)
	ArchiveTransaction(ctx context.Context, workspaceID, transactionID string) (*models.Transaction, error)
}

// CreateBudgetInput describes a new budget.
type CreateBudgetInput struct {
	CategoryID     string
	SubcategoryID  *string
	Name           string
	Amount         int64
	Currency       string
	Period         string
	StartDate      time.Time
	AlertThreshold *int
}

// BudgetUpdateFields holds the optional fields accepted by UpdateBudget.
type BudgetUpdateFields struct {
	Name           *string
	Amount         *int64
	AlertThreshold *int
}

// BudgetFilter narrows GetWorkspaceBudgets.
type BudgetFilter struct {
	Period     *budgeting.Period
	IsArchived *bool
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID string `json:"budget_id"`
	Budgeted int64  `json:"budgeted"`
	budgeting.Progress
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, workspaceID, userID string, in CreateBudgetInput) (*models.Budget, error)
	GetWorkspaceBudgets(ctx context.Context, workspaceID string, page pagination.PageRequest, filter BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, workspaceID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, workspaceID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error)
	ArchiveBudget(ctx context.Context, workspaceID, budgetID string) (*models.Budget, error)
	GetBudgetProgress(ctx context.Context, workspaceID, budgetID string) (*BudgetProgress, error)
}

// CreateRecurringInput describes a new recurring transaction. An empty
// Currency defaults to the account's currency.
type CreateRecurringInput struct {
	AccountID     string
	CategoryID    string
	SubcategoryID string
	Type          string
	Amount        int64
	Currency      string
	Notes         string
	Schedule      recurrence.ScheduleParams
	StartDate     time.Time
	EndDate       *time.Time
}

// SchedulePatch overrides individual schedule fields; nil fields keep the
// current value.
type SchedulePatch struct {
	Frequency   *string
	Interval    *int
	DayOfWeek   *int
	DayOfMonth  *int
	MonthOfYear *int
}

// UpdateRecurringInput holds the optional fields accepted by UpdateRecurring.
type UpdateRecurringInput struct {
	AccountID     *string
	CategoryID    *string
	SubcategoryID *string
	Amount        *int64
	Currency      *string
	Notes         *string
	Schedule      *SchedulePatch
	EndDate       *time.Time
	ClearEndDate  bool
}

// RecurringServicer defines the contract for recurring transaction management.
type RecurringServicer interface {
	CreateRecurring(ctx context.Context, workspaceID, userID string, in CreateRecurringInput) (recurring.RecurringTransaction, error)
	GetWorkspaceRecurring(ctx context.Context, workspaceID string, status *recurring.Status, page pagination.PageRequest) (*pagination.PageResponse[recurring.Primitives], error)
	GetRecurringByID(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)
	UpdateRecurring(ctx context.Context, workspaceID, id string, in UpdateRecurringInput) (recurring.RecurringTransaction, error)
	PauseRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)
	ResumeRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)
	ArchiveRecurring(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)
	PreviewRecurring(ctx context.Context, workspaceID, id string, n int) ([]time.Time, error)
}

// RecurringProcessor runs due recurring transactions.
type RecurringProcessor interface {
	ProcessDue(ctx context.Context, asOf time.Time) (*ProcessReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, workspaceID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
