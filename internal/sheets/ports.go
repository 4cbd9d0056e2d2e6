package sheets

import (
	"context"
	"fmt"
	"time"

	"saldo/internal/core"
)

// TransactionExporter appends ledger transactions to an external sheet.
type TransactionExporter interface {
	AppendTransaction(ctx context.Context, t core.TransactionDetails) (rowRef string, err error)
}

// Header is the column layout of exported rows.
var Header = []any{"Date", "Type", "Account", "Category", "Description", "Amount", "Transaction ID"}

// TransactionRow renders t as one sheet row. Dates are shown in loc and
// amounts as decimal strings so the sheet parses them as numbers.
func TransactionRow(t core.TransactionDetails, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	amount := core.FormatCents(t.Amount)
	if t.Type == core.Expense {
		amount = "-" + amount
	}
	return []any{
		t.Date.In(loc).Format("2006-01-02"),
		t.Type.String(),
		t.AccountName,
		t.CategoryName,
		t.Description,
		amount,
		fmt.Sprintf("%d", t.ID),
	}
}
