package memory

import (
	"context"
	"testing"

	"aurabudget/internal/core"
	"aurabudget/internal/export"
)

func TestStore_Append(t *testing.T) {
	s := New()
	e := core.Expense{ID: 4, Amount: core.Money{Cents: 999}, Date: core.NewDate(2024, 2, 1), Description: "Taxi"}

	ref, err := s.Append(context.Background(), export.NewRow(e, "Transport"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	ref, err = s.Append(context.Background(), export.NewReversalRow(e, "Transport"))
	if err != nil {
		t.Fatalf("Append() reversal error = %v", err)
	}
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("Rows() len = %d, want 2", len(rows))
	}
	if rows[1].Amount.Cents != -999 || rows[1].Kind != export.RowReversal {
		t.Errorf("reversal row = %+v", rows[1])
	}
}

func TestStore_AppendRejectsMissingID(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), export.Row{}); err == nil {
		t.Error("expected error for row without expense id")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_AppendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Append(ctx, export.Row{ExpenseID: 1}); err == nil {
		t.Error("expected error for canceled context")
	}
}
