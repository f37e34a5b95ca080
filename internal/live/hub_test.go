package live

import (
	"context"
	"testing"
	"time"

	"planner/internal/core"
)

func snapshot(n int) []core.Transaction {
	out := make([]core.Transaction, n)
	for i := range out {
		out[i] = core.Transaction{Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 1}, Date: time.Now()}
	}
	return out
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, "u1")
	h.Broadcast("u1", snapshot(2))

	select {
	case got := <-ch:
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot received")
	}
}

func TestBroadcastIsScopedToUser(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other := h.Subscribe(ctx, "u2")
	h.Broadcast("u1", snapshot(1))

	select {
	case <-other:
		t.Fatalf("u2 received u1's snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, "u1")
	h.Broadcast("u1", snapshot(1))
	h.Broadcast("u1", snapshot(3)) // replaces the unread one

	select {
	case got := <-ch:
		if len(got) != 3 {
			t.Fatalf("expected latest snapshot (3 entries), got %d", len(got))
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot received")
	}
}

func TestCancelTearsDownSubscription(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	h.Subscribe(ctx, "u1")
	if h.Subscribers("u1") != 1 {
		t.Fatalf("expected 1 subscriber")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for h.Subscribers("u1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription not torn down after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
