package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moneta/internal/cli"
)

var flagAsOf string

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single processing pass and print the report",
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().StringVar(&flagAsOf, "as-of", "", "Processing instant (RFC 3339 or YYYY-MM-DD, default now)")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	asOf := time.Now().UTC()
	if flagAsOf != "" {
		parsed, err := parseDate(flagAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
		asOf = parsed
	}

	processor, closeFn, err := newProcessor()
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := processor.ProcessDue(background(cmd), asOf)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RECURRING  Processing report"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.ReportTable(report)))
	if len(report.Failures) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.FailureTable(report.Failures)))
		fmt.Fprintf(os.Stderr, "\n  %d recurring transaction(s) failed\n", report.Failed)
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps and plain dates, returning UTC.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
