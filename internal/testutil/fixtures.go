package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/budgeting"
	"moneta/internal/models"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
	"moneta/internal/uuid"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestWorkspace creates a workspace owned by ownerID.
func CreateTestWorkspace(t *testing.T, db *gorm.DB, ownerID string) *models.Workspace {
	t.Helper()

	ws := &models.Workspace{
		Name:    fmt.Sprintf("Test Workspace %d", nextID()),
		OwnerID: ownerID,
	}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("failed to create test workspace: %v", err)
	}
	AddTestMember(t, db, ws.ID, ownerID, models.WorkspaceRoleOwner)
	return ws
}

// AddTestMember grants userID the given role in workspaceID.
func AddTestMember(t *testing.T, db *gorm.DB, workspaceID, userID string, role models.WorkspaceRole) *models.WorkspaceMember {
	t.Helper()

	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to add test member: %v", err)
	}
	return member
}

// CreateTestCashAccount creates a cash account with zero balance.
func CreateTestCashAccount(t *testing.T, db *gorm.DB, workspaceID, userID string) *models.Account {
	t.Helper()
	return CreateTestCashAccountWithBalance(t, db, workspaceID, userID, 0)
}

// CreateTestCashAccountWithBalance creates a cash account with the given balance (in cents).
func CreateTestCashAccountWithBalance(t *testing.T, db *gorm.DB, workspaceID, userID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		WorkspaceID: workspaceID,
		CreatedBy:   userID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		Type:        models.AccountTypeCash,
		Balance:     balance,
		Currency:    "MYR",
		IsActive:    true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test cash account: %v", err)
	}
	return account
}

// CreateTestCategory creates a top-level category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, workspaceID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		WorkspaceID: workspaceID,
		Name:        fmt.Sprintf("Test Category %d", nextID()),
		Type:        categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestSubcategory creates a subcategory under parent.
func CreateTestSubcategory(t *testing.T, db *gorm.DB, parent *models.Category) *models.Category {
	t.Helper()

	parentID := parent.ID
	category := &models.Category{
		WorkspaceID: parent.WorkspaceID,
		Name:        fmt.Sprintf("Test Subcategory %d", nextID()),
		Type:        parent.Type,
		ParentID:    &parentID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test subcategory: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount (in cents)
// without touching account balances.
func CreateTestTransaction(
	t *testing.T,
	db *gorm.DB,
	account *models.Account,
	categoryID *string,
	txType models.TransactionType,
	amount int64,
	date time.Time,
) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		WorkspaceID: account.WorkspaceID,
		CreatedBy:   account.CreatedBy,
		AccountID:   account.ID,
		CategoryID:  categoryID,
		Type:        txType,
		Amount:      amount,
		Currency:    account.Currency,
		Date:        date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a monthly budget of 100.00 for the given category.
func CreateTestBudget(t *testing.T, db *gorm.DB, workspaceID, userID, categoryID string, startDate time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		WorkspaceID: workspaceID,
		CreatedBy:   userID,
		CategoryID:  categoryID,
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		Amount:      10000, // 100.00
		Currency:    "MYR",
		Period:      budgeting.PeriodMonthly,
		StartDate:   startDate,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestRecurring stores an active monthly expense on day 1, starting at startDate.
func CreateTestRecurring(t *testing.T, db *gorm.DB, account *models.Account, categoryID string, startDate time.Time) recurring.RecurringTransaction {
	t.Helper()

	rt, err := recurring.New(recurring.Params{
		ID:          uuid.New(),
		WorkspaceID: account.WorkspaceID,
		AccountID:   account.ID,
		CategoryID:  categoryID,
		Type:        string(recurring.TypeExpense),
		Amount:      5000,
		Currency:    account.Currency,
		Notes:       "subscription",
		Schedule: recurrence.MustSchedule(recurrence.ScheduleParams{
			Frequency:  string(recurrence.FrequencyMonthly),
			Interval:   1,
			DayOfMonth: IntPtr(1),
		}),
		StartDate: startDate,
		CreatedBy: account.CreatedBy,
		Now:       startDate,
	})
	if err != nil {
		t.Fatalf("failed to build test recurring transaction: %v", err)
	}
	if err := db.Create(models.RecurringTransactionFromDomain(rt)).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return rt
}
