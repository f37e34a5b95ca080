package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"planner/internal/amqp"
	"planner/internal/core"
	"planner/internal/store"
	"planner/internal/store/memory"
)

type fakePublisher struct {
	events []*amqp.TransactionEvent
	fail   bool
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, e)
	return nil
}

type fakeHub struct {
	broadcasts [][]core.Transaction
}

func (f *fakeHub) Broadcast(_ string, snapshot []core.Transaction) {
	f.broadcasts = append(f.broadcasts, snapshot)
}

func TestCreatePublishesAndBroadcasts(t *testing.T) {
	pub := &fakePublisher{}
	hub := &fakeHub{}
	svc := NewTransactionService(memory.New(), pub, hub)

	id, err := svc.Create(context.Background(), "u1", core.Expense, "Food", core.Money{Cents: 100}, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected an assigned id")
	}

	if len(pub.events) != 1 || pub.events[0].Kind != amqp.KindCreated || pub.events[0].TransactionID != id {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
	if len(hub.broadcasts) != 1 || len(hub.broadcasts[0]) != 1 {
		t.Fatalf("expected one snapshot with one entry, got %+v", hub.broadcasts)
	}
	if hub.broadcasts[0][0].Date.IsZero() {
		t.Fatalf("zero date should have defaulted to now")
	}
}

func TestCreateRejectsInvalidBeforeWrite(t *testing.T) {
	pub := &fakePublisher{}
	hub := &fakeHub{}
	st := memory.New()
	svc := NewTransactionService(st, pub, hub)

	if _, err := svc.Create(context.Background(), "u1", core.Expense, "", core.Money{Cents: 100}, time.Now()); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if len(pub.events) != 0 || len(hub.broadcasts) != 0 {
		t.Fatalf("rejected write must not fan out")
	}
	if list, _ := st.ListTransactions(context.Background(), "u1"); len(list) != 0 {
		t.Fatalf("rejected write must not persist")
	}
}

func TestUpdateAndDeleteFanOut(t *testing.T) {
	pub := &fakePublisher{}
	hub := &fakeHub{}
	svc := NewTransactionService(memory.New(), pub, hub)
	ctx := context.Background()

	id, _ := svc.Create(ctx, "u1", core.Expense, "Food", core.Money{Cents: 100}, time.Now())

	if err := svc.Update(ctx, "u1", id, core.Income, "Salary", core.Money{Cents: 500}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	kinds := []string{}
	for _, e := range pub.events {
		kinds = append(kinds, e.Kind)
	}
	want := []string{amqp.KindCreated, amqp.KindUpdated, amqp.KindDeleted}
	if len(kinds) != 3 || kinds[0] != want[0] || kinds[1] != want[1] || kinds[2] != want[2] {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	if last := hub.broadcasts[len(hub.broadcasts)-1]; len(last) != 0 {
		t.Fatalf("final snapshot should be empty, got %v", last)
	}
}

func TestUpdateUnknownIDSurfacesNotFound(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, nil)
	err := svc.Update(context.Background(), "u1", "missing", core.Expense, "Food", core.Money{Cents: 1})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{fail: true}
	hub := &fakeHub{}
	svc := NewTransactionService(memory.New(), pub, hub)

	if _, err := svc.Create(context.Background(), "u1", core.Income, "Salary", core.Money{Cents: 100}, time.Now()); err != nil {
		t.Fatalf("create must succeed despite broker failure: %v", err)
	}
	if len(hub.broadcasts) != 1 {
		t.Fatalf("broadcast should still happen")
	}
}

func TestNilCollaboratorsAreOptional(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, nil)
	if _, err := svc.Create(context.Background(), "u1", core.Expense, "Food", core.Money{Cents: 1}, time.Now()); err != nil {
		t.Fatalf("create with nil collaborators: %v", err)
	}
}
