package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	"aurabudget/internal/export"
	"aurabudget/internal/export/memory"
	"aurabudget/internal/services"
	"aurabudget/internal/storage"
)

type localFixture struct {
	repo     *storage.SQLiteRepository
	sink     *memory.Store
	local    *LocalPublisher
	expenses *services.ExpenseService
	catID    int64
}

func newLocalFixture(t *testing.T) *localFixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	cat, err := repo.CreateCategory(context.Background(), core.Category{Name: "Food", Type: core.CategoryExpense, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}

	sink := memory.New()
	proc := services.NewExportProcessor(repo, sink, services.DefaultExportProcessorConfig(), testLogger())
	local := NewLocalPublisher(NewExportWorker(proc, 10, testLogger()), 8, testLogger())
	local.delay = time.Millisecond
	events := services.NewEvents(local, nil, testLogger())

	return &localFixture{
		repo:     repo,
		sink:     sink,
		local:    local,
		expenses: services.NewExpenseService(repo, events, testLogger()),
		catID:    cat.ID,
	}
}

func (f *localFixture) create(t *testing.T, cents int64) core.Expense {
	t.Helper()
	e, err := f.expenses.Create(context.Background(), core.Expense{
		Amount: core.Money{Cents: cents}, CategoryID: f.catID, Date: core.NewDate(2025, 3, 2), Description: "Groceries",
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLocalPublisherExportsAndReverses(t *testing.T) {
	f := newLocalFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.local.Run(ctx)

	e := f.create(t, 4550)
	waitFor(t, "expense row", func() bool { return f.sink.Len() == 1 })
	waitFor(t, "exported status", func() bool {
		got, err := f.repo.GetExpense(ctx, e.ID)
		return err == nil && got.ExportStatus == core.ExportExported
	})

	if _, err := f.expenses.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reversal row", func() bool { return f.sink.Len() == 2 })

	rev := f.sink.Rows()[1]
	if rev.Kind != export.RowReversal || rev.Amount.Cents != -4550 || rev.ExpenseID != e.ID {
		t.Fatalf("unexpected reversal row: %+v", rev)
	}
}

func TestLocalPublisherSkipsReversalOfUnexportedExpense(t *testing.T) {
	f := newLocalFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Both changes are queued before the consumer starts, so the expense is
	// gone before its creation is handled.
	e := f.create(t, 1200)
	if _, err := f.expenses.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	go f.local.Run(ctx)

	waitFor(t, "queue drained", func() bool { return len(f.local.queue) == 0 })
	// The last message may still be in flight once the queue is empty.
	time.Sleep(50 * time.Millisecond)
	if f.sink.Len() != 0 {
		t.Fatalf("sink rows = %d, want 0: %+v", f.sink.Len(), f.sink.Rows())
	}
}

func TestLocalPublisherQueueFull(t *testing.T) {
	local := NewLocalPublisher(NewExportWorker(&fakeExporter{}, 10, testLogger()), 1, testLogger())
	ctx := context.Background()
	msg := amqp.NewChangeMessage(amqp.EntityExpense, amqp.KindCreated, 1)

	if err := local.Publish(ctx, msg); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}
	if err := local.Publish(ctx, msg); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Publish() error = %v, want ErrQueueFull", err)
	}
}

func TestLocalPublisherRetriesFailedMessages(t *testing.T) {
	fake := &fakeExporter{err: errors.New("sink unavailable")}
	local := NewLocalPublisher(NewExportWorker(fake, 10, testLogger()), 4, testLogger())
	local.delay = time.Millisecond

	ctx := context.Background()
	local.handle(ctx, amqp.NewChangeMessage(amqp.EntityExpense, amqp.KindCreated, 7))
	if fake.calls != 3 {
		t.Fatalf("ExportExpense calls = %d, want 3", fake.calls)
	}
}
