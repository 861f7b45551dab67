package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/recurring"
	"moneta/internal/repository"
	"moneta/internal/testutil"
)

// recordingPublisher collects every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionDue
	err    error
}

func (p *recordingPublisher) PublishTransactionDue(_ context.Context, evt events.TransactionDue) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

// racingRepository lets a competing worker claim each item just before the
// processor does.
type racingRepository struct {
	repository.RecurringRepository
}

func (r racingRepository) AdvanceIfUnchanged(ctx context.Context, rt recurring.RecurringTransaction, expectedNextRun time.Time) (bool, error) {
	if _, err := r.RecurringRepository.AdvanceIfUnchanged(ctx, rt, expectedNextRun); err != nil {
		return false, err
	}
	return r.RecurringRepository.AdvanceIfUnchanged(ctx, rt, expectedNextRun)
}

func setupProcessorWorkspace(t *testing.T, db *gorm.DB) (*models.Account, *models.Category) {
	t.Helper()
	user := testutil.CreateTestUser(t, db)
	ws := testutil.CreateTestWorkspace(t, db, user.ID)
	return testutil.CreateTestCashAccount(t, db, ws.ID, user.ID),
		testutil.CreateTestCategory(t, db, ws.ID, models.CategoryTypeExpense)
}

func TestProcessDue(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("advances_one_step_and_publishes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		rt := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.January, 1))

		pub := &recordingPublisher{}
		report, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if report.Workspaces != 1 || report.Processed != 1 || report.Failed != 0 {
			t.Errorf("unexpected report %+v", report)
		}
		if len(pub.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(pub.events))
		}
		evt := pub.events[0]
		if evt.RecurringTransactionID != rt.ID() || !evt.Date.Equal(testutil.Date(2025, time.January, 1)) {
			t.Errorf("unexpected event %+v", evt)
		}
		if evt.Amount != rt.Amount() || evt.Type != string(recurring.TypeExpense) || evt.WorkspaceID != account.WorkspaceID {
			t.Errorf("event does not carry the recurring values: %+v", evt)
		}

		stored, err := repo.FindByID(ctx, account.WorkspaceID, rt.ID())
		testutil.AssertNoError(t, err)
		if !stored.NextRunDate().Equal(testutil.Date(2025, time.February, 1)) {
			t.Errorf("expected next run Feb 1, got %s", stored.NextRunDate())
		}
		if stored.LastRunDate() == nil || !stored.LastRunDate().Equal(testutil.Date(2025, time.January, 1)) {
			t.Errorf("expected last run Jan 1, got %v", stored.LastRunDate())
		}
	})

	t.Run("repeated_runs_catch_up", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.January, 1))

		pub := &recordingPublisher{}
		proc := NewRecurringProcessor(repo, pub, ProcessorConfig{})
		for i := 0; i < 5; i++ {
			_, err := proc.ProcessDue(ctx, asOf)
			testutil.AssertNoError(t, err)
		}

		// Jan 1, Feb 1 and Mar 1 are due; Apr 1 is not.
		if len(pub.events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(pub.events))
		}
		if !pub.events[2].Date.Equal(testutil.Date(2025, time.March, 1)) {
			t.Errorf("expected last occurrence Mar 1, got %s", pub.events[2].Date)
		}
	})

	t.Run("processes_every_workspace", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		for i := 0; i < 3; i++ {
			account, category := setupProcessorWorkspace(t, db)
			testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))
		}

		pub := &recordingPublisher{}
		report, err := NewRecurringProcessor(repo, pub, ProcessorConfig{Concurrency: 2}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if report.Workspaces != 3 || report.Processed != 3 {
			t.Errorf("expected 3 workspaces processed, got %+v", report)
		}
	})

	t.Run("ignores_paused_and_future", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		paused := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.January, 1))
		p, err := paused.Pause(asOf)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, repo.Update(ctx, p, p.NextRunDate()))
		testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.March, 2))

		pub := &recordingPublisher{}
		report, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if report.Workspaces != 0 || report.Processed != 0 || len(pub.events) != 0 {
			t.Errorf("expected nothing processed, got %+v", report)
		}
	})

	t.Run("corrupt_row_does_not_stop_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		corrupt := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.January, 1))
		db.Model(&models.RecurringTransaction{}).Where("id = ?", corrupt.ID()).Update("frequency", "hourly")
		healthy := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))

		pub := &recordingPublisher{}
		report, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if report.Processed != 1 || report.Failed != 1 {
			t.Fatalf("expected 1 processed and 1 failed, got %+v", report)
		}
		if report.Failures[0].RecurringTransactionID != corrupt.ID() || report.Failures[0].Code != "INVALID_FREQUENCY" {
			t.Errorf("unexpected failure %+v", report.Failures[0])
		}
		if pub.events[0].RecurringTransactionID != healthy.ID() {
			t.Errorf("expected event for %s, got %s", healthy.ID(), pub.events[0].RecurringTransactionID)
		}
	})

	t.Run("publish_failure_is_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		rt := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))

		pub := &recordingPublisher{err: errors.New("broker unavailable")}
		report, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		if report.Failed != 1 || report.Processed != 0 {
			t.Fatalf("expected 1 failure, got %+v", report)
		}
		if report.Failures[0].Code != "INTERNAL_ERROR" || report.Failures[0].RecurringTransactionID != rt.ID() {
			t.Errorf("unexpected failure %+v", report.Failures[0])
		}

		stored, err := repo.FindByID(ctx, account.WorkspaceID, rt.ID())
		testutil.AssertNoError(t, err)
		if !stored.NextRunDate().Equal(testutil.Date(2025, time.February, 1)) || stored.LastRunDate() != nil {
			t.Fatalf("failed publish must not advance the schedule, got next=%s last=%v", stored.NextRunDate(), stored.LastRunDate())
		}

		// Once the broker recovers the same occurrence goes out first.
		pub.err = nil
		for i := 0; i < 3; i++ {
			_, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
			testutil.AssertNoError(t, err)
		}
		if len(pub.events) != 2 {
			t.Fatalf("expected Feb 1 and Mar 1 after recovery, got %d events", len(pub.events))
		}
		if !pub.events[0].Date.Equal(testutil.Date(2025, time.February, 1)) || !pub.events[1].Date.Equal(testutil.Date(2025, time.March, 1)) {
			t.Errorf("unexpected occurrences %s, %s", pub.events[0].Date, pub.events[1].Date)
		}
	})

	t.Run("lost_claim_is_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))

		published := 0
		pub := events.PublisherFunc(func(context.Context, events.TransactionDue) error {
			published++
			return nil
		})
		report, err := NewRecurringProcessor(racingRepository{repo}, pub, ProcessorConfig{}).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		// The losing worker has already published; the ledger drops the repeat.
		if report.Skipped != 1 || report.Processed != 0 || published != 1 {
			t.Errorf("expected one publish and a skip, got %+v (published=%d)", report, published)
		}
	})

	t.Run("auto_pause_at_end", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		rt := testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))
		db.Model(&models.RecurringTransaction{}).Where("id = ?", rt.ID()).Update("end_date", testutil.Date(2025, time.February, 15))

		cfg := ProcessorConfig{Options: recurring.DefaultProcessOptions()}
		_, err := NewRecurringProcessor(repo, &recordingPublisher{}, cfg).ProcessDue(ctx, asOf)
		testutil.AssertNoError(t, err)

		stored, err := repo.FindByID(ctx, account.WorkspaceID, rt.ID())
		testutil.AssertNoError(t, err)
		if stored.Status() != recurring.StatusPaused {
			t.Errorf("expected paused after the last occurrence, got %s", stored.Status())
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewRecurringRepository(db)
		account, category := setupProcessorWorkspace(t, db)
		testutil.CreateTestRecurring(t, db, account, category.ID, testutil.Date(2025, time.February, 1))

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		pub := &recordingPublisher{}
		_, err := NewRecurringProcessor(repo, pub, ProcessorConfig{}).ProcessDue(cctx, asOf)
		if err == nil {
			t.Fatal("expected an error for a cancelled context")
		}
		if len(pub.events) != 0 {
			t.Errorf("expected no events, got %d", len(pub.events))
		}
	})
}
