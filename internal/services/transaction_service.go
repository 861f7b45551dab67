package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/money"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
	}
}

// CreateTransaction records an income, expense or transfer and applies it
// to the affected account balances atomically.
func (s *transactionService) CreateTransaction(ctx context.Context, workspaceID, userID string, in CreateTransactionInput) (*models.Transaction, error) {
	if err := money.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	switch in.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	case models.TransactionTypeTransfer:
		if in.ToAccountID == nil || *in.ToAccountID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is required for transfers")
		}
		if *in.ToAccountID == in.AccountID {
			return nil, apperrors.ErrSameAccountTransfer
		}
		if in.CategoryID != nil || in.SubcategoryID != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transfers cannot be categorised")
		}
	default:
		return nil, apperrors.ErrInvalidTransactionType
	}

	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := findAccount(tx, workspaceID, in.AccountID)
		if err != nil {
			return err
		}

		transaction := &models.Transaction{
			WorkspaceID: workspaceID,
			CreatedBy:   userID,
			AccountID:   account.ID,
			Type:        in.Type,
			Amount:      in.Amount,
			Currency:    account.Currency,
			Description: in.Description,
			Date:        in.Date.UTC(),
		}

		if in.Type == models.TransactionTypeTransfer {
			toAccount, err := findAccount(tx, workspaceID, *in.ToAccountID)
			if err != nil {
				return err
			}
			if toAccount.Currency != account.Currency {
				return apperrors.WithMessage(apperrors.ErrInvalidCurrency, "transfers between accounts of different currencies are not supported")
			}
			transaction.ToAccountID = &toAccount.ID
			result, err = s.createWithDB(tx, transaction, account, toAccount)
			return err
		}

		transaction.CategoryID, transaction.SubcategoryID, err = resolveCategory(tx, workspaceID, in.CategoryID, in.SubcategoryID, models.CategoryType(in.Type))
		if err != nil {
			return err
		}
		result, err = s.createWithDB(tx, transaction, account, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateFromDue writes the ledger entry for a due recurring occurrence.
// Redelivered events for an occurrence that is already recorded return the
// existing transaction.
func (s *transactionService) CreateFromDue(ctx context.Context, evt events.TransactionDue) (*models.Transaction, error) {
	txType := models.TransactionType(evt.Type)
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidRecurringType
	}
	if err := money.ValidateAmount(evt.Amount); err != nil {
		return nil, err
	}
	if evt.RecurringTransactionID == "" || evt.WorkspaceID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring transaction and workspace are required")
	}

	date := evt.Date.UTC()

	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Where("recurring_transaction_id = ? AND date = ?", evt.RecurringTransactionID, date).First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		account, err := findAccount(tx, evt.WorkspaceID, evt.AccountID)
		if err != nil {
			return err
		}
		if evt.Currency != account.Currency {
			return apperrors.WithMessagef(apperrors.ErrInvalidCurrency,
				"event currency %s does not match account currency %s", evt.Currency, account.Currency)
		}

		var subcategoryID *string
		if evt.SubcategoryID != "" {
			subcategoryID = &evt.SubcategoryID
		}
		categoryID, subcategoryID, err := resolveCategory(tx, evt.WorkspaceID, &evt.CategoryID, subcategoryID, models.CategoryType(txType))
		if err != nil {
			return err
		}

		recurringID := evt.RecurringTransactionID
		transaction := &models.Transaction{
			WorkspaceID:            evt.WorkspaceID,
			CreatedBy:              evt.CreatedBy,
			AccountID:              account.ID,
			CategoryID:             categoryID,
			SubcategoryID:          subcategoryID,
			Type:                   txType,
			Amount:                 evt.Amount,
			Currency:               account.Currency,
			Description:            evt.Notes,
			Date:                   date,
			RecurringTransactionID: &recurringID,
		}
		result, err = s.createWithDB(tx, transaction, account, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createWithDB inserts transaction and applies it to the balances of the
// accounts involved. toAccount is only set for transfers.
func (s *transactionService) createWithDB(tx *gorm.DB, transaction *models.Transaction, account, toAccount *models.Account) (*models.Transaction, error) {
	if err := tx.Omit("Account", "ToAccount", "Category").Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.applyBalance(tx, transaction, account, toAccount, false); err != nil {
		return nil, err
	}
	return transaction, nil
}

// applyBalance moves account balances for transaction, or undoes that move
// when reverse is set.
func (s *transactionService) applyBalance(tx *gorm.DB, transaction *models.Transaction, account, toAccount *models.Account, reverse bool) error {
	flip := func(t models.TransactionType) models.TransactionType {
		if !reverse {
			return t
		}
		if t == models.TransactionTypeIncome {
			return models.TransactionTypeExpense
		}
		return models.TransactionTypeIncome
	}

	switch transaction.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return s.accountService.UpdateAccountBalance(tx, account, flip(transaction.Type), transaction.Amount)
	case models.TransactionTypeTransfer:
		if toAccount == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is required for transfers")
		}
		if err := s.accountService.UpdateAccountBalance(tx, account, flip(models.TransactionTypeExpense), transaction.Amount); err != nil {
			return err
		}
		return s.accountService.UpdateAccountBalance(tx, toAccount, flip(models.TransactionTypeIncome), transaction.Amount)
	default:
		return apperrors.ErrInvalidTransactionType
	}
}

// resolveCategory checks that categoryID is a top-level category of the
// expected type and that subcategoryID, when set, is one of its children.
func resolveCategory(tx *gorm.DB, workspaceID string, categoryID, subcategoryID *string, want models.CategoryType) (*string, *string, error) {
	if categoryID == nil || *categoryID == "" {
		if subcategoryID != nil && *subcategoryID != "" {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory requires a category")
		}
		return nil, nil, nil
	}

	var category models.Category
	if err := tx.Where("id = ? AND workspace_id = ?", *categoryID, workspaceID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrCategoryNotFound
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.IsSubcategory() {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category must be a top-level category; pass subcategories separately")
	}
	if category.Type != want {
		return nil, nil, apperrors.WithMessagef(apperrors.ErrInvalidInput, "category type %q does not match %q", category.Type, want)
	}
	catID := category.ID

	if subcategoryID == nil || *subcategoryID == "" {
		return &catID, nil, nil
	}

	var sub models.Category
	if err := tx.Where("id = ? AND workspace_id = ?", *subcategoryID, workspaceID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "subcategory not found")
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if sub.ParentID == nil || *sub.ParentID != catID {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory does not belong to the category")
	}
	subID := sub.ID
	return &catID, &subID, nil
}

// GetWorkspaceTransactions retrieves a paginated, filtered list of
// transactions in a workspace, newest first.
func (s *transactionService) GetWorkspaceTransactions(ctx context.Context, workspaceID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("workspace_id = ?", workspaceID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if !f.IncludeArchived {
		q = q.Where("is_archived = ?", false)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("(category_id = ? OR subcategory_id = ?)", *f.CategoryID, *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("(account_id = ? OR to_account_id = ?)", *f.AccountID, *f.AccountID)
	}
	return q
}

// GetTransactionByID retrieves a transaction in a workspace
func (s *transactionService) GetTransactionByID(ctx context.Context, workspaceID, transactionID string) (*models.Transaction, error) {
	return findTransaction(s.db.WithContext(ctx), workspaceID, transactionID)
}

func findTransaction(db *gorm.DB, workspaceID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := db.Where("id = ? AND workspace_id = ?", transactionID, workspaceID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ArchiveTransaction soft-deletes a transaction and reverses its balance
// effect. Archiving an archived transaction is a no-op.
func (s *transactionService) ArchiveTransaction(ctx context.Context, workspaceID, transactionID string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := findTransaction(tx, workspaceID, transactionID)
		if err != nil {
			return err
		}
		if transaction.IsArchived {
			result = transaction
			return nil
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND is_archived = ?", transaction.ID, false).
			Updates(map[string]interface{}{"is_archived": true, "archived_at": now})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConcurrentModification
		}

		account, err := s.loadAccountAnyState(tx, transaction.AccountID)
		if err != nil {
			return err
		}
		var toAccount *models.Account
		if transaction.ToAccountID != nil {
			if toAccount, err = s.loadAccountAnyState(tx, *transaction.ToAccountID); err != nil {
				return err
			}
		}
		if err := s.applyBalance(tx, transaction, account, toAccount, true); err != nil {
			return err
		}

		transaction.IsArchived = true
		transaction.ArchivedAt = &now
		result = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Archived transactions may reference deactivated accounts.
func (s *transactionService) loadAccountAnyState(tx *gorm.DB, accountID string) (*models.Account, error) {
	var account models.Account
	if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// SubscribeLedger makes bus write every TransactionDue it carries to the
// ledger through transactions.
func SubscribeLedger(bus *events.Bus, transactions TransactionServicer) {
	bus.Subscribe(func(ctx context.Context, evt events.TransactionDue) error {
		_, err := transactions.CreateFromDue(ctx, evt)
		return err
	})
}
