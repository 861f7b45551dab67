// Package scheduler runs the recurring processor on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"moneta/internal/logger"
	"moneta/internal/services"
)

// ReportFunc observes the outcome of every pass.
type ReportFunc func(report *services.ProcessReport, err error)

// Scheduler calls ProcessDue once at start and then on every tick until its
// context is cancelled. Passes never overlap.
type Scheduler struct {
	processor services.RecurringProcessor
	interval  time.Duration
	now       func() time.Time
	onReport  ReportFunc
	log       *zap.SugaredLogger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithReportFunc registers fn to observe each pass.
func WithReportFunc(fn ReportFunc) Option {
	return func(s *Scheduler) { s.onReport = fn }
}

// New creates a Scheduler. interval must be positive.
func New(processor services.RecurringProcessor, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	s := &Scheduler{
		processor: processor,
		interval:  interval,
		now:       time.Now,
		log:       logger.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run blocks until ctx is cancelled. A failed pass is logged and the loop
// continues; cancellation returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infow("Recurring scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("Recurring scheduler stopped", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass as of the scheduler's clock.
func (s *Scheduler) RunOnce(ctx context.Context) (*services.ProcessReport, error) {
	start := time.Now()
	report, err := s.processor.ProcessDue(ctx, s.now().UTC())
	if s.onReport != nil {
		s.onReport(report, err)
	}

	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorw("Recurring pass failed", "error", err)
		}
		return nil, err
	}

	s.log.Infow("Recurring pass completed",
		"as_of", report.AsOf,
		"workspaces", report.Workspaces,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start).String(),
	)
	for _, f := range report.Failures {
		s.log.Warnw("Recurring transaction failed",
			"recurring_transaction_id", f.RecurringTransactionID,
			"workspace_id", f.WorkspaceID,
			"code", f.Code,
			"error", f.Error,
		)
	}
	return report, nil
}
