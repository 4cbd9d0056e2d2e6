package core

import "sort"

type (
	MonthlyStats struct {
		TotalIncome      int64
		TotalExpense     int64
		Balance          int64 // TotalIncome - TotalExpense
		TransactionCount int
	}

	// CategoryTotal is one grouped row of the per-category aggregation.
	CategoryTotal struct {
		CategoryID       int64
		TotalAmount      int64
		TransactionCount int
	}

	CategorySpending struct {
		CategoryID       int64
		CategoryName     string
		CategoryIcon     string
		CategoryColor    string
		TotalAmount      int64
		TransactionCount int
		// Percentage is the fraction (0..1) of the grand total for the type.
		Percentage float64
	}

	MonthAnalytics struct {
		Year               int
		Month              int
		Stats              MonthlyStats
		ExpensesByCategory []CategorySpending
		IncomeByCategory   []CategorySpending
	}
)

// ComputeMonthlyStats totals the given transactions by type.
func ComputeMonthlyStats(txs []Transaction) MonthlyStats {
	var stats MonthlyStats
	for _, t := range txs {
		switch t.Type {
		case Income:
			stats.TotalIncome += t.Amount
		case Expense:
			stats.TotalExpense += t.Amount
		}
	}
	stats.Balance = stats.TotalIncome - stats.TotalExpense
	stats.TransactionCount = len(txs)
	return stats
}

// BuildCategorySpending decorates grouped totals with category display data,
// computes each share of the grand total and orders the result by total
// descending. Groups with no transactions are dropped.
func BuildCategorySpending(totals []CategoryTotal, categories map[int64]Category) []CategorySpending {
	var grand int64
	for _, t := range totals {
		grand += t.TotalAmount
	}

	out := make([]CategorySpending, 0, len(totals))
	for _, t := range totals {
		if t.TransactionCount == 0 {
			continue
		}
		cs := CategorySpending{
			CategoryID:       t.CategoryID,
			TotalAmount:      t.TotalAmount,
			TransactionCount: t.TransactionCount,
		}
		if c, ok := categories[t.CategoryID]; ok {
			cs.CategoryName = c.Name
			cs.CategoryIcon = c.Icon
			cs.CategoryColor = c.Color
		}
		if grand > 0 {
			cs.Percentage = float64(t.TotalAmount) / float64(grand)
		}
		out = append(out, cs)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
