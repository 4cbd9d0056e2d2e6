package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/core"
	"saldo/internal/services"
)

func analyticsCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show income and expense totals for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledgerStore, cfg, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledgerStore.Cleanup()

			loc := cfg.Location()
			y, m := core.CurrentMonth(time.Now(), loc)
			if year != 0 {
				y = year
			}
			if month != 0 {
				m = month
			}

			report, err := services.NewAnalyticsService(ledgerStore.Store, loc).MonthAnalytics(ctx, y, m)
			if err != nil {
				return err
			}
			return printMonth(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: current)")
	return cmd
}

func printMonth(out io.Writer, m core.MonthAnalytics) error {
	fmt.Fprintf(out, "%04d-%02d  income %s  expense %s  net %s  (%d transactions)\n",
		m.Year, m.Month,
		core.FormatCents(m.Stats.TotalIncome),
		core.FormatCents(m.Stats.TotalExpense),
		core.FormatCents(m.Stats.Balance),
		m.Stats.TransactionCount)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, section := range []struct {
		title string
		rows  []core.CategorySpending
	}{
		{"EXPENSES", m.ExpensesByCategory},
		{"INCOME", m.IncomeByCategory},
	} {
		if len(section.rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t\t\t\n", section.title)
		for _, cs := range section.rows {
			fmt.Fprintf(w, "%s %s\t%s\t%.1f%%\t%d\n",
				cs.CategoryIcon, cs.CategoryName, core.FormatCents(cs.TotalAmount), cs.Percentage*100, cs.TransactionCount)
		}
	}
	return w.Flush()
}
