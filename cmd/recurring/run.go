package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"moneta/internal/cli"
	"moneta/internal/config"
	"moneta/internal/scheduler"
	"moneta/internal/services"
)

var flagInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process due recurring transactions on an interval until stopped",
	RunE:  runLoop,
}

func init() {
	runCmd.Flags().DurationVar(&flagInterval, "interval", 0, "Time between passes (default RECURRING_INTERVAL, or 1h)")
	rootCmd.AddCommand(runCmd)
}

func runLoop(cmd *cobra.Command, _ []string) error {
	interval := flagInterval
	if interval <= 0 {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		interval = cfg.RecurringInterval
	}
	if interval <= 0 {
		interval = time.Hour
	}

	processor, closeFn, err := newProcessor()
	if err != nil {
		return err
	}
	defer closeFn()

	sched, err := scheduler.New(processor, interval, scheduler.WithReportFunc(func(r *services.ProcessReport, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "  pass failed: %v\n", err)
			return
		}
		if !flagQuiet {
			fmt.Println("  " + cli.ReportLine(r))
		}
	}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !flagQuiet {
		fmt.Println(cli.RenderMuted(fmt.Sprintf("  Processing every %s. Press Ctrl+C to stop.", interval)))
	}
	return sched.Run(ctx)
}
