package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

type ledgerFixture struct {
	db       *gorm.DB
	accounts AccountServicer
	svc      TransactionServicer
	user     *models.User
	ws       *models.Workspace
	account  *models.Account
	expense  *models.Category
	income   *models.Category
}

func newLedgerFixture(t *testing.T, balance int64) ledgerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	accounts := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	ws := testutil.CreateTestWorkspace(t, db, user.ID)
	return ledgerFixture{
		db:       db,
		accounts: accounts,
		svc:      NewTransactionService(db, accounts),
		user:     user,
		ws:       ws,
		account:  testutil.CreateTestCashAccountWithBalance(t, db, ws.ID, user.ID, balance),
		expense:  testutil.CreateTestCategory(t, db, ws.ID, models.CategoryTypeExpense),
		income:   testutil.CreateTestCategory(t, db, ws.ID, models.CategoryTypeIncome),
	}
}

func (f ledgerFixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	account, err := f.accounts.GetAccountByID(context.Background(), f.ws.ID, accountID)
	testutil.AssertNoError(t, err)
	return account.Balance
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("income", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		tx, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:   f.account.ID,
			CategoryID:  &f.income.ID,
			Type:        models.TransactionTypeIncome,
			Amount:      5000,
			Description: "Salary",
			Date:        time.Now(),
		})
		testutil.AssertNoError(t, err)

		if tx.ID == "" || tx.Type != models.TransactionTypeIncome || tx.Currency != f.account.Currency {
			t.Errorf("unexpected transaction %+v", tx)
		}
		if got := f.balance(t, f.account.ID); got != 5000 {
			t.Errorf("expected balance 5000, got %d", got)
		}
	})

	t.Run("expense_with_subcategory", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		sub := testutil.CreateTestSubcategory(t, f.db, f.expense)

		tx, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:     f.account.ID,
			CategoryID:    &f.expense.ID,
			SubcategoryID: &sub.ID,
			Type:          models.TransactionTypeExpense,
			Amount:        2500,
		})
		testutil.AssertNoError(t, err)

		if tx.SubcategoryID == nil || *tx.SubcategoryID != sub.ID {
			t.Errorf("expected subcategory %s, got %v", sub.ID, tx.SubcategoryID)
		}
		if tx.Date.IsZero() {
			t.Error("expected date to default to now")
		}
		if got := f.balance(t, f.account.ID); got != 7500 {
			t.Errorf("expected balance 7500, got %d", got)
		}
	})

	t.Run("category_type_mismatch", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:  f.account.ID,
			CategoryID: &f.expense.ID,
			Type:       models.TransactionTypeIncome,
			Amount:     100,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("subcategory_of_other_category", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		otherParent := testutil.CreateTestCategory(t, f.db, f.ws.ID, models.CategoryTypeExpense)
		sub := testutil.CreateTestSubcategory(t, f.db, otherParent)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:     f.account.ID,
			CategoryID:    &f.expense.ID,
			SubcategoryID: &sub.ID,
			Type:          models.TransactionTypeExpense,
			Amount:        100,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_amount", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID: f.account.ID,
			Type:      models.TransactionTypeExpense,
			Amount:    0,
		})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})

	t.Run("unknown_type", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID: f.account.ID,
			Type:      models.TransactionType("refund"),
			Amount:    100,
		})
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")
	})

	t.Run("account_in_other_workspace", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		other := testutil.CreateTestWorkspace(t, f.db, f.user.ID)

		_, err := f.svc.CreateTransaction(ctx, other.ID, f.user.ID, CreateTransactionInput{
			AccountID: f.account.ID,
			Type:      models.TransactionTypeExpense,
			Amount:    100,
		})
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestCreateTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		to := testutil.CreateTestCashAccount(t, f.db, f.ws.ID, f.user.ID)

		tx, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:   f.account.ID,
			ToAccountID: &to.ID,
			Type:        models.TransactionTypeTransfer,
			Amount:      3000,
		})
		testutil.AssertNoError(t, err)

		if tx.ToAccountID == nil || *tx.ToAccountID != to.ID {
			t.Error("expected ToAccountID to be set")
		}
		if got := f.balance(t, f.account.ID); got != 7000 {
			t.Errorf("expected from-balance 7000, got %d", got)
		}
		if got := f.balance(t, to.ID); got != 3000 {
			t.Errorf("expected to-balance 3000, got %d", got)
		}
	})

	t.Run("same_account", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:   f.account.ID,
			ToAccountID: &f.account.ID,
			Type:        models.TransactionTypeTransfer,
			Amount:      1000,
		})
		testutil.AssertAppError(t, err, "SAME_ACCOUNT_TRANSFER")
	})

	t.Run("missing_destination", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID: f.account.ID,
			Type:      models.TransactionTypeTransfer,
			Amount:    1000,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("currency_mismatch_leaves_balances", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		to := testutil.CreateTestCashAccount(t, f.db, f.ws.ID, f.user.ID)
		f.db.Model(to).Update("currency", "USD")

		_, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:   f.account.ID,
			ToAccountID: &to.ID,
			Type:        models.TransactionTypeTransfer,
			Amount:      1000,
		})
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")

		if got := f.balance(t, f.account.ID); got != 10000 {
			t.Errorf("expected balance unchanged at 10000, got %d", got)
		}
	})
}

func TestCreateFromDue(t *testing.T) {
	ctx := context.Background()

	due := func(f ledgerFixture) events.TransactionDue {
		return events.TransactionDue{
			RecurringTransactionID: "0192d7a8-5c1e-7b3a-9f00-1234567890ab",
			WorkspaceID:            f.ws.ID,
			Type:                   "expense",
			AccountID:              f.account.ID,
			CategoryID:             f.expense.ID,
			Amount:                 1500,
			Currency:               f.account.Currency,
			Notes:                  "Netflix",
			Date:                   testutil.Date(2025, time.March, 1),
			CreatedBy:              f.user.ID,
		}
	}

	t.Run("writes_tagged_transaction", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		evt := due(f)

		tx, err := f.svc.CreateFromDue(ctx, evt)
		testutil.AssertNoError(t, err)

		if tx.RecurringTransactionID == nil || *tx.RecurringTransactionID != evt.RecurringTransactionID {
			t.Errorf("expected recurring id %s, got %v", evt.RecurringTransactionID, tx.RecurringTransactionID)
		}
		if !tx.Date.Equal(evt.Date) || tx.Description != "Netflix" || tx.CreatedBy != f.user.ID {
			t.Errorf("unexpected transaction %+v", tx)
		}
		if got := f.balance(t, f.account.ID); got != 8500 {
			t.Errorf("expected balance 8500, got %d", got)
		}
	})

	t.Run("redelivery_is_idempotent", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		evt := due(f)

		first, err := f.svc.CreateFromDue(ctx, evt)
		testutil.AssertNoError(t, err)
		second, err := f.svc.CreateFromDue(ctx, evt)
		testutil.AssertNoError(t, err)

		if first.ID != second.ID {
			t.Errorf("expected the same transaction, got %s and %s", first.ID, second.ID)
		}
		if got := f.balance(t, f.account.ID); got != 8500 {
			t.Errorf("expected balance applied once (8500), got %d", got)
		}
	})

	t.Run("currency_mismatch", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		evt := due(f)
		evt.Currency = "USD"

		_, err := f.svc.CreateFromDue(ctx, evt)
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")
	})

	t.Run("transfer_rejected", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		evt := due(f)
		evt.Type = "transfer"

		_, err := f.svc.CreateFromDue(ctx, evt)
		testutil.AssertAppError(t, err, "INVALID_RECURRING_TYPE")
	})
}

func TestGetWorkspaceTransactions(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 0)
	other := testutil.CreateTestCashAccount(t, f.db, f.ws.ID, f.user.ID)

	testutil.CreateTestTransaction(t, f.db, f.account, &f.expense.ID, models.TransactionTypeExpense, 1000, testutil.Date(2025, time.January, 10))
	testutil.CreateTestTransaction(t, f.db, f.account, &f.income.ID, models.TransactionTypeIncome, 2000, testutil.Date(2025, time.February, 10))
	testutil.CreateTestTransaction(t, f.db, other, &f.expense.ID, models.TransactionTypeExpense, 3000, testutil.Date(2025, time.March, 10))
	archived := testutil.CreateTestTransaction(t, f.db, f.account, &f.expense.ID, models.TransactionTypeExpense, 4000, testutil.Date(2025, time.March, 11))
	f.db.Model(archived).Update("is_archived", true)

	t.Run("all_newest_first", func(t *testing.T) {
		result, err := f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Fatalf("expected 3 transactions, got %d", result.TotalItems)
		}
		if result.Data[0].Amount != 3000 {
			t.Errorf("expected newest first, got amount %d", result.Data[0].Amount)
		}
	})

	t.Run("include_archived", func(t *testing.T) {
		result, err := f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{IncludeArchived: true})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 4 {
			t.Errorf("expected 4 transactions, got %d", result.TotalItems)
		}
	})

	t.Run("filters", func(t *testing.T) {
		expense := models.TransactionTypeExpense
		from := testutil.Date(2025, time.February, 1)

		result, err := f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{Type: &expense})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 expenses, got %d", result.TotalItems)
		}

		result, err = f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{FromDate: &from})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 transactions since February, got %d", result.TotalItems)
		}

		result, err = f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{AccountID: &other.ID})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 transaction on the other account, got %d", result.TotalItems)
		}

		result, err = f.svc.GetWorkspaceTransactions(ctx, f.ws.ID, pagination.PageRequest{}, TransactionFilter{CategoryID: &f.income.ID})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 income-category transaction, got %d", result.TotalItems)
		}
	})
}

func TestArchiveTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("reverses_balance_once", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		tx, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID: f.account.ID,
			Type:      models.TransactionTypeExpense,
			Amount:    2000,
		})
		testutil.AssertNoError(t, err)

		archived, err := f.svc.ArchiveTransaction(ctx, f.ws.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if !archived.IsArchived || archived.ArchivedAt == nil {
			t.Errorf("expected archived transaction, got %+v", archived)
		}
		if got := f.balance(t, f.account.ID); got != 10000 {
			t.Errorf("expected balance restored to 10000, got %d", got)
		}

		_, err = f.svc.ArchiveTransaction(ctx, f.ws.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if got := f.balance(t, f.account.ID); got != 10000 {
			t.Errorf("expected second archive to be a no-op, got balance %d", got)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		f := newLedgerFixture(t, 10000)
		to := testutil.CreateTestCashAccount(t, f.db, f.ws.ID, f.user.ID)
		tx, err := f.svc.CreateTransaction(ctx, f.ws.ID, f.user.ID, CreateTransactionInput{
			AccountID:   f.account.ID,
			ToAccountID: &to.ID,
			Type:        models.TransactionTypeTransfer,
			Amount:      4000,
		})
		testutil.AssertNoError(t, err)

		_, err = f.svc.ArchiveTransaction(ctx, f.ws.ID, tx.ID)
		testutil.AssertNoError(t, err)

		if got := f.balance(t, f.account.ID); got != 10000 {
			t.Errorf("expected from-balance 10000, got %d", got)
		}
		if got := f.balance(t, to.ID); got != 0 {
			t.Errorf("expected to-balance 0, got %d", got)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.ArchiveTransaction(ctx, f.ws.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}
