package http

import (
	"time"

	"saldo/internal/core"
)

// Amounts travel as decimal strings on input; responses carry both the
// exact minor units and a formatted value.

type accountResponse struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	BalanceCents        int64     `json:"balance_cents"`
	Balance             string    `json:"balance"`
	OpeningBalanceCents int64     `json:"opening_balance_cents"`
	CreatedAt           time.Time `json:"created_at"`
}

type createAccountRequest struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type updateAccountRequest struct {
	Name *string `json:"name"`
}

// adjustRequest moves the balance by amount: up for "income", down for "expense".
type adjustRequest struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
}

type totalResponse struct {
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

type categoryResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	IsSystem bool   `json:"is_system"`
}

type createCategoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type updateCategoryRequest struct {
	Name  *string `json:"name"`
	Type  *string `json:"type"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

type transactionResponse struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	Amount        string    `json:"amount"`
	AccountID     int64     `json:"account_id"`
	AccountName   string    `json:"account_name,omitempty"`
	CategoryID    int64     `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	CategoryIcon  string    `json:"category_icon,omitempty"`
	CategoryColor string    `json:"category_color,omitempty"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type createTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type updateTransactionRequest struct {
	Type        *string `json:"type"`
	Amount      *string `json:"amount"`
	AccountID   *int64  `json:"account_id"`
	CategoryID  *int64  `json:"category_id"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

type monthlyStatsResponse struct {
	TotalIncomeCents  int64 `json:"total_income_cents"`
	TotalExpenseCents int64 `json:"total_expense_cents"`
	BalanceCents      int64 `json:"balance_cents"`
	TransactionCount  int   `json:"transaction_count"`
}

type categorySpendingResponse struct {
	CategoryID       int64   `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	CategoryIcon     string  `json:"category_icon"`
	CategoryColor    string  `json:"category_color"`
	TotalCents       int64   `json:"total_cents"`
	Total            string  `json:"total"`
	TransactionCount int     `json:"transaction_count"`
	Percentage       float64 `json:"percentage"`
}

type monthAnalyticsResponse struct {
	Year               int                        `json:"year"`
	Month              int                        `json:"month"`
	Stats              monthlyStatsResponse       `json:"stats"`
	ExpensesByCategory []categorySpendingResponse `json:"expenses_by_category"`
	IncomeByCategory   []categorySpendingResponse `json:"income_by_category"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		Name:                a.Name,
		BalanceCents:        a.Balance,
		Balance:             core.FormatCents(a.Balance),
		OpeningBalanceCents: a.OpeningBalance,
		CreatedAt:           a.CreatedAt,
	}
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:       c.ID,
		Name:     c.Name,
		Type:     c.Type.String(),
		Icon:     c.Icon,
		Color:    c.Color,
		IsSystem: c.IsSystem,
	}
}

func toTransactionResponse(t core.TransactionDetails) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Type:          t.Type.String(),
		AmountCents:   t.Amount,
		Amount:        core.FormatCents(t.Amount),
		AccountID:     t.AccountID,
		AccountName:   t.AccountName,
		CategoryID:    t.CategoryID,
		CategoryName:  t.CategoryName,
		CategoryIcon:  t.CategoryIcon,
		CategoryColor: t.CategoryColor,
		Description:   t.Description,
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toSpendingResponses(in []core.CategorySpending) []categorySpendingResponse {
	out := make([]categorySpendingResponse, 0, len(in))
	for _, cs := range in {
		out = append(out, categorySpendingResponse{
			CategoryID:       cs.CategoryID,
			CategoryName:     cs.CategoryName,
			CategoryIcon:     cs.CategoryIcon,
			CategoryColor:    cs.CategoryColor,
			TotalCents:       cs.TotalAmount,
			Total:            core.FormatCents(cs.TotalAmount),
			TransactionCount: cs.TransactionCount,
			Percentage:       cs.Percentage,
		})
	}
	return out
}

func toMonthAnalyticsResponse(m core.MonthAnalytics) monthAnalyticsResponse {
	return monthAnalyticsResponse{
		Year:  m.Year,
		Month: m.Month,
		Stats: monthlyStatsResponse{
			TotalIncomeCents:  m.Stats.TotalIncome,
			TotalExpenseCents: m.Stats.TotalExpense,
			BalanceCents:      m.Stats.Balance,
			TransactionCount:  m.Stats.TransactionCount,
		},
		ExpensesByCategory: toSpendingResponses(m.ExpensesByCategory),
		IncomeByCategory:   toSpendingResponses(m.IncomeByCategory),
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
