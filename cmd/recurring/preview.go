package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"moneta/internal/cli"
	"moneta/internal/money"
	"moneta/internal/recurrence"
	"moneta/internal/services"
)

var (
	flagFrequency   string
	flagEvery       int
	flagDayOfWeek   int
	flagDayOfMonth  int
	flagMonthOfYear int
	flagStart       string
	flagEnd         string
	flagCount       int
	flagAmount      string
	flagCurrency    string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the upcoming run dates of a schedule without touching the database",
	Example: `  recurring preview --frequency monthly --day-of-month 31 --start 2025-01-15 -n 6
  recurring preview --frequency weekly --every 2 --day-of-week 1 --start 2025-03-01
  recurring preview --frequency monthly --day-of-month 1 --amount 1250.00 --currency MYR -n 12`,
	RunE: runPreview,
}

func init() {
	f := previewCmd.Flags()
	f.StringVar(&flagFrequency, "frequency", "monthly", "daily, weekly, monthly or yearly")
	f.IntVar(&flagEvery, "every", 1, "Interval between runs in frequency units")
	f.IntVar(&flagDayOfWeek, "day-of-week", -1, "Weekday anchor for weekly schedules (0 = Sunday)")
	f.IntVar(&flagDayOfMonth, "day-of-month", 0, "Day anchor for monthly and yearly schedules")
	f.IntVar(&flagMonthOfYear, "month-of-year", 0, "Month anchor for yearly schedules")
	f.StringVar(&flagStart, "start", "", "Start date (default today)")
	f.StringVar(&flagEnd, "end", "", "Optional end date")
	f.IntVarP(&flagCount, "count", "n", 5, "Number of dates to print")
	f.StringVar(&flagAmount, "amount", "", "Amount per run in major units; adds amount and running total columns")
	f.StringVar(&flagCurrency, "currency", "MYR", "ISO 4217 currency of --amount")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	if flagCount < 1 || flagCount > services.MaxPreviewOccurrences {
		return fmt.Errorf("--count must be between 1 and %d", services.MaxPreviewOccurrences)
	}

	freq, err := recurrence.ParseFrequency(flagFrequency)
	if err != nil {
		return err
	}
	for _, anchor := range freq.RequiredAnchors() {
		name := strings.ReplaceAll(string(anchor), "_", "-")
		if !cmd.Flags().Changed(name) {
			return fmt.Errorf("--%s is required for %s schedules", name, freq)
		}
	}

	var amount int64
	if flagAmount != "" {
		if err := money.ValidateCurrency(flagCurrency); err != nil {
			return err
		}
		major, err := decimal.NewFromString(flagAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount: %w", err)
		}
		if amount, err = money.FromMajor(major); err != nil {
			return err
		}
	}

	params := recurrence.ScheduleParams{Frequency: flagFrequency, Interval: flagEvery}
	if cmd.Flags().Changed("day-of-week") {
		params.DayOfWeek = &flagDayOfWeek
	}
	if cmd.Flags().Changed("day-of-month") {
		params.DayOfMonth = &flagDayOfMonth
	}
	if cmd.Flags().Changed("month-of-year") {
		params.MonthOfYear = &flagMonthOfYear
	}
	schedule, err := recurrence.NewSchedule(params)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if flagStart != "" {
		if start, err = parseDate(flagStart); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	var end *time.Time
	if flagEnd != "" {
		e, err := parseDate(flagEnd)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		end = &e
	}

	dates := services.PreviewSchedule(schedule, schedule.FirstRunDate(start), end, flagCount, false)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SCHEDULE  every %d %s", flagEvery, flagFrequency)))
	fmt.Println()
	if len(dates) == 0 {
		fmt.Println(cli.RenderMuted("  No runs before the end date."))
		return nil
	}
	table := cli.PreviewTable(dates, now)
	if flagAmount != "" {
		table = cli.ProjectionTable(dates, now, amount, flagCurrency)
	}
	fmt.Print(cli.RenderTable(table))
	return nil
}
