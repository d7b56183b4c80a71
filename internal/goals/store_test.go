package goals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aurabudget/internal/core"
)

var fixedNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestSeedDefaultsOnFirstList(t *testing.T) {
	s := New(Options{Now: clock, SeedDefaults: true})
	goals, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(goals) != 3 {
		t.Fatalf("expected 3 sample goals, got %d", len(goals))
	}
	// Ordered by target date: vacation (+8m), emergency (+12m), car (+18m).
	if goals[0].Name != "Vacation Fund" || goals[2].Name != "New Car" {
		t.Fatalf("unexpected order: %s, %s, %s", goals[0].Name, goals[1].Name, goals[2].Name)
	}
	if goals[1].TargetDate.String() != "2026-03-15" {
		t.Fatalf("emergency fund target date: %s", goals[1].TargetDate)
	}

	// Deleting all goals does not bring the samples back.
	for _, g := range goals {
		if err := s.Delete(context.Background(), g.ID); err != nil {
			t.Fatal(err)
		}
	}
	goals, _ = s.List(context.Background())
	if len(goals) != 0 {
		t.Fatalf("expected empty store, got %d", len(goals))
	}
}

func TestNoSeedAfterExplicitCreate(t *testing.T) {
	s := New(Options{Now: clock, SeedDefaults: true})
	if _, err := s.Create(context.Background(), core.Goal{
		Name: "Laptop", TargetAmount: core.Money{Cents: 150000}, TargetDate: core.NewDate(2025, 9, 1),
	}); err != nil {
		t.Fatal(err)
	}
	goals, _ := s.List(context.Background())
	if len(goals) != 1 {
		t.Fatalf("expected only the created goal, got %d", len(goals))
	}
}

func TestGoalLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(Options{Now: clock})

	if _, err := s.Create(ctx, core.Goal{Name: " ", TargetAmount: core.Money{Cents: 1}, TargetDate: core.NewDate(2025, 1, 1)}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	g, err := s.Create(ctx, core.Goal{
		Name: " Bike ", TargetAmount: core.Money{Cents: 50000}, TargetDate: core.NewDate(2025, 6, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != 1 || g.Name != "Bike" || !g.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created goal %+v", g)
	}

	g, err = s.AddMoney(ctx, g.ID, core.Money{Cents: 20000})
	if err != nil || g.CurrentAmount.Cents != 20000 || g.IsCompleted {
		t.Fatalf("first contribution: %+v %v", g, err)
	}
	g, err = s.AddMoney(ctx, g.ID, core.Money{Cents: 30000})
	if err != nil || !g.IsCompleted {
		t.Fatalf("second contribution should complete: %+v %v", g, err)
	}
	if _, err := s.AddMoney(ctx, g.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	g.TargetAmount = core.Money{Cents: 80000}
	g.CreatedAt = time.Time{}
	updated, err := s.Update(ctx, g)
	if err != nil {
		t.Fatal(err)
	}
	if updated.IsCompleted || !updated.CreatedAt.Equal(fixedNow) {
		t.Fatalf("raising the target should reopen the goal and keep CreatedAt: %+v", updated)
	}

	if _, err := s.Get(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentContributions(t *testing.T) {
	ctx := context.Background()
	s := New(Options{Now: clock})
	g, err := s.Create(ctx, core.Goal{Name: "Fund", TargetAmount: core.Money{Cents: 1000000}, TargetDate: core.NewDate(2026, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddMoney(ctx, g.ID, core.Money{Cents: 100}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, g.ID)
	if got.CurrentAmount.Cents != 5000 {
		t.Fatalf("expected 5000, got %d", got.CurrentAmount.Cents)
	}
}
