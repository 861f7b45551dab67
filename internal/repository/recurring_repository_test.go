package repository

import (
	"context"
	"testing"
	"time"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/recurring"
	"moneta/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	repo     RecurringRepository
	account  *models.Account
	category *models.Category
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db)
	ws := testutil.CreateTestWorkspace(t, db, user.ID)
	return fixture{
		db:       db,
		repo:     NewRecurringRepository(db),
		account:  testutil.CreateTestCashAccount(t, db, ws.ID, user.ID),
		category: testutil.CreateTestCategory(t, db, ws.ID, models.CategoryTypeExpense),
	}
}

func TestRecurringRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("round_trips_stored_value", func(t *testing.T) {
		f := setup(t)
		rt := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))

		got, err := f.repo.FindByID(ctx, f.account.WorkspaceID, rt.ID())
		testutil.AssertNoError(t, err)
		if got.Amount() != rt.Amount() || !got.NextRunDate().Equal(rt.NextRunDate()) {
			t.Errorf("expected %+v, got %+v", rt.ToPrimitives(), got.ToPrimitives())
		}
		if got.Schedule().Frequency() != rt.Schedule().Frequency() {
			t.Errorf("expected frequency %s, got %s", rt.Schedule().Frequency(), got.Schedule().Frequency())
		}
	})

	t.Run("other_workspace_is_not_found", func(t *testing.T) {
		f := setup(t)
		rt := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))

		_, err := f.repo.FindByID(ctx, "another-workspace", rt.ID())
		testutil.AssertAppError(t, err, "RECURRING_TRANSACTION_NOT_FOUND")
	})
}

func TestRecurringRepository_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rt := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))

	paused, err := rt.Pause(time.Now())
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, f.repo.Update(ctx, paused, paused.NextRunDate()))

	got, err := f.repo.FindByID(ctx, f.account.WorkspaceID, rt.ID())
	testutil.AssertNoError(t, err)
	if got.Status() != recurring.StatusPaused {
		t.Errorf("expected paused, got %s", got.Status())
	}

	missing := testutil.CreateTestRecurring(t, testutil.SetupTestDB(t), f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	err = f.repo.Update(ctx, missing, missing.NextRunDate())
	testutil.AssertAppError(t, err, "RECURRING_TRANSACTION_NOT_FOUND")

	// A stale read must not overwrite a row the processor has advanced.
	fresh := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	advanced, occurrence, err := fresh.Process(testutil.Date(2025, time.March, 1), recurring.ProcessOptions{})
	testutil.AssertNoError(t, err)
	ok, err := f.repo.AdvanceIfUnchanged(ctx, advanced, occurrence)
	testutil.AssertNoError(t, err)
	if !ok {
		t.Fatal("expected the advance to apply")
	}
	stale, err := fresh.Pause(time.Now())
	testutil.AssertNoError(t, err)
	err = f.repo.Update(ctx, stale, fresh.NextRunDate())
	testutil.AssertErrorIs(t, err, apperrors.ErrConcurrentModification)

	got, err = f.repo.FindByID(ctx, f.account.WorkspaceID, fresh.ID())
	testutil.AssertNoError(t, err)
	if got.Status() != recurring.StatusActive || !got.NextRunDate().Equal(advanced.NextRunDate()) || got.LastRunDate() == nil {
		t.Errorf("stale update rewound the row: status=%s next=%s last=%v", got.Status(), got.NextRunDate(), got.LastRunDate())
	}
}

func TestRecurringRepository_FindDue(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	due := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.June, 1))
	pausedRT := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	paused, err := pausedRT.Pause(time.Now())
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, f.repo.Update(ctx, paused, paused.NextRunDate()))

	asOf := testutil.Date(2025, time.March, 1)
	records, err := f.repo.FindDue(ctx, f.account.WorkspaceID, asOf)
	testutil.AssertNoError(t, err)
	if len(records) != 1 {
		t.Fatalf("expected 1 due record, got %d", len(records))
	}
	if records[0].ID != due.ID() || records[0].Err != nil {
		t.Errorf("unexpected record %+v", records[0])
	}

	ids, err := f.repo.DueWorkspaceIDs(ctx, asOf)
	testutil.AssertNoError(t, err)
	if len(ids) != 1 || ids[0] != f.account.WorkspaceID {
		t.Errorf("expected [%s], got %v", f.account.WorkspaceID, ids)
	}

	ids, err = f.repo.DueWorkspaceIDs(ctx, testutil.Date(2024, time.December, 1))
	testutil.AssertNoError(t, err)
	if len(ids) != 0 {
		t.Errorf("expected no due workspaces, got %v", ids)
	}
}

func TestRecurringRepository_FindDueReportsCorruptRows(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	good := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	bad := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 2))
	if err := f.db.Model(&models.RecurringTransaction{}).Where("id = ?", bad.ID()).Update("frequency", "hourly").Error; err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	records, err := f.repo.FindDue(ctx, f.account.WorkspaceID, testutil.Date(2025, time.March, 1))
	testutil.AssertNoError(t, err)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != good.ID() || records[0].Err != nil {
		t.Errorf("expected first record to be valid, got %+v", records[0])
	}
	if records[1].ID != bad.ID() {
		t.Errorf("expected second record %s, got %s", bad.ID(), records[1].ID)
	}
	testutil.AssertAppError(t, records[1].Err, apperrors.ErrInvalidFrequency.Code)
}

func TestRecurringRepository_AdvanceIfUnchanged(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rt := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))

	asOf := testutil.Date(2025, time.January, 5)
	advanced, occurrence, err := rt.Process(asOf, recurring.DefaultProcessOptions())
	testutil.AssertNoError(t, err)

	ok, err := f.repo.AdvanceIfUnchanged(ctx, advanced, occurrence)
	testutil.AssertNoError(t, err)
	if !ok {
		t.Fatal("expected first advance to win")
	}

	// A second worker that read the same row loses the race.
	ok, err = f.repo.AdvanceIfUnchanged(ctx, advanced, occurrence)
	testutil.AssertNoError(t, err)
	if ok {
		t.Error("expected second advance to be rejected")
	}

	got, err := f.repo.FindByID(ctx, f.account.WorkspaceID, rt.ID())
	testutil.AssertNoError(t, err)
	if !got.NextRunDate().Equal(testutil.Date(2025, time.February, 1)) {
		t.Errorf("expected next run 2025-02-01, got %s", got.NextRunDate())
	}
	if got.LastRunDate() == nil || !got.LastRunDate().Equal(occurrence) {
		t.Errorf("expected last run %s, got %v", occurrence, got.LastRunDate())
	}
}

func TestRecurringRepository_FindByWorkspaceID(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.January, 1))
	second := testutil.CreateTestRecurring(t, f.db, f.account, f.category.ID, testutil.Date(2025, time.March, 1))
	archived := second.Archive(time.Now())
	testutil.AssertNoError(t, f.repo.Update(ctx, archived, archived.NextRunDate()))

	all, total, err := f.repo.FindByWorkspaceID(ctx, f.account.WorkspaceID, RecurringFilter{}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if total != 2 || len(all) != 2 {
		t.Fatalf("expected 2 items, got total=%d len=%d", total, len(all))
	}
	if all[0].ID() != first.ID() {
		t.Errorf("expected ordering by next run date, first was %s", all[0].ID())
	}

	status := recurring.StatusArchived
	onlyArchived, total, err := f.repo.FindByWorkspaceID(ctx, f.account.WorkspaceID, RecurringFilter{Status: &status}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if total != 1 || onlyArchived[0].ID() != second.ID() {
		t.Errorf("expected only %s, got total=%d", second.ID(), total)
	}
}
