// Package export defines the outbound port for mirroring expenses into an
// external ledger such as a spreadsheet.
package export

import (
	"context"
	"strings"

	"aurabudget/internal/core"
)

const (
	RowExpense  = "expense"
	RowReversal = "reversal"
)

// Header is the column layout written by every sink.
var Header = []string{"Expense ID", "Date", "Description", "Category", "Amount", "Tags", "Kind"}

// Row is one exported ledger line. Reversal rows carry a negated amount.
type Row struct {
	ExpenseID   int64
	Date        core.Date
	Description string
	Category    string
	Amount      core.Money
	Tags        []string
	Kind        string
}

// Sink appends rows and returns a reference to where the row landed.
type Sink interface {
	Append(ctx context.Context, row Row) (ref string, err error)
}

// HeaderWriter is implemented by sinks that can prepare an empty ledger.
type HeaderWriter interface {
	EnsureHeader(ctx context.Context) error
}

func NewRow(e core.Expense, category string) Row {
	return Row{
		ExpenseID:   e.ID,
		Date:        e.Date,
		Description: e.Description,
		Category:    category,
		Amount:      e.Amount,
		Tags:        append([]string(nil), e.Tags...),
		Kind:        RowExpense,
	}
}

// NewReversalRow cancels a previously exported expense.
func NewReversalRow(e core.Expense, category string) Row {
	r := NewRow(e, category)
	r.Amount = e.Amount.Neg()
	r.Kind = RowReversal
	return r
}

// Values renders the row in Header order.
func (r Row) Values() []any {
	return []any{
		r.ExpenseID,
		r.Date.String(),
		r.Description,
		r.Category,
		r.Amount.String(),
		strings.Join(r.Tags, ", "),
		r.Kind,
	}
}
