package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"planner/internal/auth"
	"planner/internal/core"
	"planner/internal/store"
)

func TestCreateListOrderedByDateDesc(t *testing.T) {
	s := New()
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := s.CreateTransaction(ctx, "u1", core.Transaction{
			Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 100}, Date: d,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Date.After(list[i-1].Date) {
			t.Fatalf("not ordered date desc: %v", list)
		}
	}
}

func TestUpdateKeepsIDAndDate(t *testing.T) {
	s := New()
	ctx := context.Background()
	date := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	id, err := s.CreateTransaction(ctx, "u1", core.Transaction{
		Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 100}, Date: date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.UpdateTransaction(ctx, "u1", id, core.Income, "Salary", core.Money{Cents: 900}); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, _ := s.ListTransactions(ctx, "u1")
	got := list[0]
	if got.ID != id || !got.Date.Equal(date) {
		t.Fatalf("id or date changed on update: %+v", got)
	}
	if got.Type != core.Income || got.Category != "Salary" || got.Amount.Cents != 900 {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.CreateTransaction(ctx, "u1", core.Transaction{
		Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 100}, Date: time.Now(),
	})

	if err := s.UpdateTransaction(ctx, "u2", id, core.Expense, "Food", core.Money{Cents: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u2", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if list, _ := s.ListTransactions(ctx, "u2"); len(list) != 0 {
		t.Fatalf("u2 must not see u1's records")
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.CreateTransaction(ctx, "u1", core.Transaction{
		Type: core.Income, Category: "Salary", Amount: core.Money{Cents: 100}, Date: time.Now(),
	})
	if err := s.DeleteTransaction(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := s.ListTransactions(ctx, "u1"); len(list) != 0 {
		t.Fatalf("record still present after delete")
	}
	if err := s.DeleteTransaction(ctx, "u1", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserAndSessionStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, "a@example.com", "hash"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if err := s.CreateSession(ctx, "th", u.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := s.SessionUser(ctx, "th", time.Now())
	if err != nil || got.ID != u.ID {
		t.Fatalf("session lookup failed: %v %v", got, err)
	}

	// expired session is invisible and purgeable
	_ = s.CreateSession(ctx, "old", u.ID, time.Now().Add(-time.Hour))
	if _, err := s.SessionUser(ctx, "old", time.Now()); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession for expired, got %v", err)
	}
	if n, _ := s.DeleteExpiredSessions(ctx, time.Now()); n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
}
