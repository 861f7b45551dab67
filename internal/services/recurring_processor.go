package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/recurring"
	"moneta/internal/repository"
)

// DefaultProcessorConcurrency is the number of workspaces processed in
// parallel when ProcessorConfig.Concurrency is not set.
const DefaultProcessorConcurrency = 4

// ProcessorConfig tunes the recurring processor.
type ProcessorConfig struct {
	Concurrency int
	Options     recurring.ProcessOptions
}

// ProcessFailure describes one recurring transaction that could not be processed.
type ProcessFailure struct {
	RecurringTransactionID string `json:"recurring_transaction_id"`
	WorkspaceID            string `json:"workspace_id"`
	Code                   string `json:"code"`
	Error                  string `json:"error"`
}

// ProcessReport summarises one ProcessDue run.
type ProcessReport struct {
	AsOf       time.Time        `json:"as_of"`
	Workspaces int              `json:"workspaces"`
	Processed  int              `json:"processed"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Failures   []ProcessFailure `json:"failures,omitempty"`
}

func (r *ProcessReport) merge(o *ProcessReport) {
	r.Processed += o.Processed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Failures = append(r.Failures, o.Failures...)
}

func (r *ProcessReport) fail(workspaceID, id string, err error) {
	code := apperrors.ErrInternalServer.Code
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	r.Failed++
	r.Failures = append(r.Failures, ProcessFailure{
		RecurringTransactionID: id,
		WorkspaceID:            workspaceID,
		Code:                   code,
		Error:                  err.Error(),
	})
}

type recurringProcessor struct {
	repo      repository.RecurringRepository
	publisher events.Publisher
	cfg       ProcessorConfig
}

// NewRecurringProcessor creates a RecurringProcessor that emits a
// TransactionDue event to publisher for every occurrence it processes.
func NewRecurringProcessor(repo repository.RecurringRepository, publisher events.Publisher, cfg ProcessorConfig) RecurringProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultProcessorConcurrency
	}
	return &recurringProcessor{repo: repo, publisher: publisher, cfg: cfg}
}

// ProcessDue advances every recurring transaction due at asOf by one step.
// Workspaces are processed in parallel and items within a workspace in
// order. A failing item is recorded in the report and does not stop the
// batch; the returned error is only set when listing fails or ctx ends.
func (p *recurringProcessor) ProcessDue(ctx context.Context, asOf time.Time) (*ProcessReport, error) {
	log := logger.Named("recurring")

	workspaceIDs, err := p.repo.DueWorkspaceIDs(ctx, asOf)
	if err != nil {
		return nil, err
	}

	report := &ProcessReport{AsOf: asOf, Workspaces: len(workspaceIDs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, workspaceID := range workspaceIDs {
		if gctx.Err() != nil {
			break
		}
		workspaceID := workspaceID
		g.Go(func() error {
			wsReport, err := p.processWorkspace(gctx, workspaceID, asOf)
			mu.Lock()
			report.merge(wsReport)
			mu.Unlock()
			return err
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	log.Infow("recurring batch finished",
		"as_of", asOf,
		"workspaces", report.Workspaces,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, err
}

// processWorkspace only returns an error when ctx ends.
func (p *recurringProcessor) processWorkspace(ctx context.Context, workspaceID string, asOf time.Time) (*ProcessReport, error) {
	log := logger.Named("recurring")
	report := &ProcessReport{}

	records, err := p.repo.FindDue(ctx, workspaceID, asOf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		report.fail(workspaceID, "", err)
		log.Errorw("failed to list due recurring transactions", "workspace_id", workspaceID, "error", err)
		return report, nil
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if rec.Err != nil {
			report.fail(workspaceID, rec.ID, rec.Err)
			log.Errorw("skipping unreadable recurring transaction", "workspace_id", workspaceID, "id", rec.ID, "error", rec.Err)
			continue
		}

		processed, err := p.processOne(ctx, rec.Transaction, asOf)
		switch {
		case err != nil:
			report.fail(workspaceID, rec.ID, err)
			log.Errorw("failed to process recurring transaction", "workspace_id", workspaceID, "id", rec.ID, "error", err)
		case processed:
			report.Processed++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

// processOne reports false when the item was no longer due or another
// worker advanced it first.
func (p *recurringProcessor) processOne(ctx context.Context, rt recurring.RecurringTransaction, asOf time.Time) (bool, error) {
	if !rt.IsDue(asOf) {
		return false, nil
	}
	advanced, occurrence, err := rt.Process(asOf, p.cfg.Options)
	if err != nil {
		return false, err
	}

	// The row only advances after the event is out, so a failed publish
	// leaves the occurrence due for the next run. Consumers drop repeats of
	// the same (recurring id, date).
	if err := p.publisher.PublishTransactionDue(ctx, TransactionDueEvent(rt, occurrence)); err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ok, err := p.repo.AdvanceIfUnchanged(ctx, advanced, occurrence)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Named("recurring").Infow("recurring transaction already processed", "id", rt.ID(), "occurrence", occurrence)
		return false, nil
	}
	return true, nil
}

// TransactionDueEvent builds the event for one occurrence of rt.
func TransactionDueEvent(rt recurring.RecurringTransaction, occurrence time.Time) events.TransactionDue {
	return events.TransactionDue{
		RecurringTransactionID: rt.ID(),
		WorkspaceID:            rt.WorkspaceID(),
		Type:                   string(rt.Type()),
		AccountID:              rt.AccountID(),
		CategoryID:             rt.CategoryID(),
		SubcategoryID:          rt.SubcategoryID(),
		Amount:                 rt.Amount(),
		Currency:               rt.Currency(),
		Notes:                  rt.Notes(),
		Date:                   occurrence,
		CreatedBy:              rt.CreatedBy(),
	}
}
