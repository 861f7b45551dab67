// Package cli provides formatting and rendering utilities for the recurring
// command's terminal output.
package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"moneta/internal/money"
	"moneta/internal/services"
)

// DateLayout is how run dates are printed.
const DateLayout = "Mon 2006-01-02"

// FormatAmount renders minor units as a grouped major amount, e.g.
// 123456 MYR -> "MYR 1,234.56".
func FormatAmount(minor int64, currency string) string {
	major, _ := money.ToMajor(minor).Float64()
	s := humanize.FormatFloat("#,###.##", major)
	if currency == "" {
		return s
	}
	return currency + " " + s
}

// FormatRelative describes t relative to now in days, e.g. "3 days from now".
func FormatRelative(t, now time.Time) string {
	days := int(t.Sub(now).Hours() / 24)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days > 0:
		return fmt.Sprintf("in %s days", humanize.Comma(int64(days)))
	case days == -1:
		return "yesterday"
	}
	return fmt.Sprintf("%s days ago", humanize.Comma(int64(-days)))
}

// PreviewTable lists upcoming run dates.
func PreviewTable(dates []time.Time, now time.Time) Table {
	rows := make([][]string, 0, len(dates))
	for i, d := range dates {
		rows = append(rows, []string{
			humanize.Ordinal(i + 1),
			d.UTC().Format(DateLayout),
			FormatRelative(d, now),
		})
	}
	return Table{Headers: []string{"Run", "Date", "When"}, Rows: rows}
}

// ProjectionTable is PreviewTable plus the amount each run posts and the
// running total over the listed runs.
func ProjectionTable(dates []time.Time, now time.Time, amount int64, currency string) Table {
	t := PreviewTable(dates, now)
	t.Headers = append(t.Headers, "Amount", "Total")
	var total int64
	for i := range t.Rows {
		total += amount
		t.Rows[i] = append(t.Rows[i], FormatAmount(amount, currency), FormatAmount(total, currency))
	}
	return t
}

// ReportTable summarises one processor pass.
func ReportTable(r *services.ProcessReport) Table {
	return Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"As of", r.AsOf.UTC().Format(time.RFC3339)},
			{"---"},
			{"Workspaces", humanize.Comma(int64(r.Workspaces))},
			{"Processed", humanize.Comma(int64(r.Processed))},
			{"Skipped", humanize.Comma(int64(r.Skipped))},
			{"Failed", humanize.Comma(int64(r.Failed))},
		},
	}
}

// FailureTable lists the items a processor pass could not handle.
func FailureTable(failures []services.ProcessFailure) Table {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.RecurringTransactionID, f.Code, f.Error})
	}
	return Table{Title: "Failures", Headers: []string{"Recurring transaction", "Code", "Error"}, Rows: rows}
}

// ReportLine is the one-line summary printed after each scheduled pass.
func ReportLine(r *services.ProcessReport) string {
	line := fmt.Sprintf("%s  processed %s, skipped %s, failed %s across %s",
		r.AsOf.UTC().Format(time.RFC3339),
		humanize.Comma(int64(r.Processed)),
		humanize.Comma(int64(r.Skipped)),
		humanize.Comma(int64(r.Failed)),
		english.Plural(r.Workspaces, "workspace", "workspaces"),
	)
	return RenderStatus(line, r.Failed, r.Skipped)
}
