package watch

import (
	"testing"
	"time"
)

func TestHub_CoalescesPendingChanges(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Change{Entity: "expense", Kind: "created", ID: 1})
	h.Publish(Change{Entity: "expense", Kind: "created", ID: 2})
	h.Publish(Change{Entity: "expense", Kind: "created", ID: 3})

	select {
	case c := <-ch:
		if c.ID != 1 {
			t.Errorf("first change ID = %d, want 1", c.ID)
		}
		if c.OccurredAt.IsZero() {
			t.Error("expected OccurredAt to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a pending change")
	}

	select {
	case c := <-ch:
		t.Errorf("expected no further pending change, got %+v", c)
	default:
	}
}

func TestHub_CancelAndClose(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	ch2, _ := h.Subscribe()
	if n := h.Subscribers(); n != 2 {
		t.Fatalf("Subscribers() = %d, want 2", n)
	}

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Error("expected canceled channel to be closed")
	}

	h.Close()
	if _, ok := <-ch2; ok {
		t.Error("expected channel closed by Close")
	}

	ch3, cancel3 := h.Subscribe()
	defer cancel3()
	if _, ok := <-ch3; ok {
		t.Error("expected subscription after Close to be closed")
	}
	h.Publish(Change{Entity: "goal"})
}
