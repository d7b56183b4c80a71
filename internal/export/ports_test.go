package export

import (
	"testing"

	"aurabudget/internal/core"
)

func TestRowValues(t *testing.T) {
	e := core.Expense{
		ID:          12,
		Amount:      core.Money{Cents: 4550},
		Date:        core.NewDate(2024, 6, 3),
		Description: "Dinner",
		Tags:        []string{"food", "friends"},
	}

	row := NewRow(e, "Food & Dining")
	got := row.Values()
	want := []any{int64(12), "2024-06-03", "Dinner", "Food & Dining", "45.50", "food, friends", RowExpense}
	if len(got) != len(Header) {
		t.Fatalf("Values() has %d columns, header has %d", len(got), len(Header))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %s = %v, want %v", Header[i], got[i], want[i])
		}
	}

	rev := NewReversalRow(e, "Food & Dining").Values()
	if rev[4] != "-45.50" || rev[6] != RowReversal {
		t.Errorf("reversal values = %v", rev)
	}

	e.Tags[0] = "changed"
	if row.Tags[0] != "food" {
		t.Error("row tags should not alias the expense tags")
	}
}
