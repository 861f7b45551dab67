package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/money"
	"moneta/internal/pagination"
)

// DefaultCurrency is used when an account is created without one.
const DefaultCurrency = "MYR"

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

func validAccountType(t models.AccountType) bool {
	switch t {
	case models.AccountTypeCash, models.AccountTypeSavings, models.AccountTypeCreditCard:
		return true
	}
	return false
}

// CreateAccount creates an account in a workspace. A positive initial
// balance is recorded as an income transaction in the same database
// transaction.
func (s *accountService) CreateAccount(
	ctx context.Context,
	workspaceID, userID, name, description string,
	accountType models.AccountType,
	currency string,
	initialBalance int64,
) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if accountType == "" {
		accountType = models.AccountTypeCash
	}
	if !validAccountType(accountType) {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidInput, "unsupported account type %q", accountType)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	if initialBalance < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "initial balance cannot be negative")
	}
	if initialBalance > 0 {
		if err := money.ValidateAmount(initialBalance); err != nil {
			return nil, err
		}
	}

	account := &models.Account{
		WorkspaceID: workspaceID,
		CreatedBy:   userID,
		Name:        name,
		Type:        accountType,
		Description: description,
		Currency:    currency,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if initialBalance > 0 {
			transaction := &models.Transaction{
				WorkspaceID: workspaceID,
				CreatedBy:   userID,
				AccountID:   account.ID,
				Type:        models.TransactionTypeIncome,
				Amount:      initialBalance,
				Currency:    currency,
				Description: "Initial balance",
				Date:        time.Now().UTC(),
			}
			if err := tx.Create(transaction).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := s.UpdateAccountBalance(tx, account, models.TransactionTypeIncome, initialBalance); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetWorkspaceAccounts retrieves a paginated list of active accounts in a workspace.
func (s *accountService) GetWorkspaceAccounts(ctx context.Context, workspaceID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.Account{}).Where("workspace_id = ? AND is_active = ?", workspaceID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an active account in a workspace
func (s *accountService) GetAccountByID(ctx context.Context, workspaceID, accountID string) (*models.Account, error) {
	return findAccount(s.db.WithContext(ctx), workspaceID, accountID)
}

func findAccount(db *gorm.DB, workspaceID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("id = ? AND workspace_id = ? AND is_active = ?", accountID, workspaceID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates the name and description of an account.
func (s *accountService) UpdateAccount(ctx context.Context, workspaceID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(ctx, workspaceID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
		}
		updates["name"] = name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}

	if len(updates) > 0 {
		db := s.db.WithContext(ctx)
		if err := db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// UpdateAccountBalance applies a ledger entry to an account's balance.
// Credit cards hold the amount owed, so expenses increase the balance and
// income decreases it; every other account type does the opposite.
func (s *accountService) UpdateAccountBalance(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount int64) error {
	switch transactionType {
	case models.TransactionTypeIncome:
		if account.Type == models.AccountTypeCreditCard {
			account.Balance -= amount
		} else {
			account.Balance += amount
		}
	case models.TransactionTypeExpense:
		if account.Type == models.AccountTypeCreditCard {
			account.Balance += amount
		} else {
			account.Balance -= amount
		}
	default:
		return apperrors.ErrInvalidTransactionType
	}

	if err := tx.Model(account).Update("balance", account.Balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
