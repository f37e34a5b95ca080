package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"planner/internal/amqp"
	"planner/internal/core"
	"planner/internal/storage"
	"planner/internal/store"
)

type fakeStore struct {
	txs      map[string]core.Transaction // keyed by id
	pending  []storage.PendingExport
	exported []string
	failed   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: make(map[string]core.Transaction)}
}

func (f *fakeStore) GetTransaction(_ context.Context, _, id string) (core.Transaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (f *fakeStore) ListPendingExports(_ context.Context, limit int) ([]storage.PendingExport, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) MarkExported(_ context.Context, id string) error {
	f.exported = append(f.exported, id)
	return nil
}

func (f *fakeStore) MarkExportError(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeExporter struct {
	upserts  []string
	deletes  []string
	failWith error
}

func (f *fakeExporter) UpsertTransaction(_ context.Context, _ string, tx core.Transaction) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.upserts = append(f.upserts, tx.ID)
	return nil
}

func (f *fakeExporter) DeleteTransaction(_ context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Type:     core.Expense,
		Category: "Food",
		Amount:   core.Money{Cents: 100},
		Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleEventCreatedExportsAndMarks(t *testing.T) {
	st := newFakeStore()
	st.txs["t1"] = sampleTx("t1")
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, time.Minute)

	event := amqp.NewTransactionEvent("u1", "t1", amqp.KindCreated)
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(exp.upserts) != 1 || exp.upserts[0] != "t1" {
		t.Fatalf("expected upsert of t1, got %v", exp.upserts)
	}
	if len(st.exported) != 1 || st.exported[0] != "t1" {
		t.Fatalf("expected t1 marked exported, got %v", st.exported)
	}
}

func TestHandleEventDeletedRemovesRow(t *testing.T) {
	st := newFakeStore()
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, time.Minute)

	event := amqp.NewTransactionEvent("u1", "t1", amqp.KindDeleted)
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(exp.deletes) != 1 || exp.deletes[0] != "t1" {
		t.Fatalf("expected row delete for t1, got %v", exp.deletes)
	}
}

func TestHandleEventMissingRecordCleansUp(t *testing.T) {
	st := newFakeStore()
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, time.Minute)

	// Created event for a record already deleted locally.
	event := amqp.NewTransactionEvent("u1", "gone", amqp.KindCreated)
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(exp.deletes) != 1 || exp.deletes[0] != "gone" {
		t.Fatalf("expected stale row removal, got %v", exp.deletes)
	}
	if len(st.exported) != 0 {
		t.Fatalf("nothing should be marked exported")
	}
}

func TestHandleEventExportFailureMarksErrorAndSurfaces(t *testing.T) {
	st := newFakeStore()
	st.txs["t1"] = sampleTx("t1")
	exp := &fakeExporter{failWith: errors.New("quota exceeded")}
	w := NewExportWorker(st, exp, 10, time.Minute)

	event := amqp.NewTransactionEvent("u1", "t1", amqp.KindUpdated)
	if err := w.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected error so the delivery is requeued")
	}
	if len(st.failed) != 1 || st.failed[0] != "t1" {
		t.Fatalf("expected t1 marked with export error, got %v", st.failed)
	}
}

func TestProcessPendingExportsBatch(t *testing.T) {
	st := newFakeStore()
	st.txs["t1"] = sampleTx("t1")
	st.txs["t2"] = sampleTx("t2")
	st.pending = []storage.PendingExport{
		{UserID: "u1", TransactionID: "t1"},
		{UserID: "u1", TransactionID: "t2"},
		{UserID: "u1", TransactionID: "gone"},
	}
	exp := &fakeExporter{}
	w := NewExportWorker(st, exp, 10, time.Minute)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(exp.upserts) != 2 {
		t.Fatalf("expected 2 upserts, got %v", exp.upserts)
	}
	if len(st.exported) != 2 {
		t.Fatalf("expected 2 marked exported, got %v", st.exported)
	}
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	st := newFakeStore()
	st.txs["t1"] = sampleTx("t1")
	st.txs["t2"] = sampleTx("t2")
	st.pending = []storage.PendingExport{
		{UserID: "u1", TransactionID: "t1"},
		{UserID: "u1", TransactionID: "t2"},
	}
	exp := &fakeExporter{failWith: errors.New("quota exceeded")}
	w := NewExportWorker(st, exp, 10, time.Minute)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("batch itself should not fail: %v", err)
	}
	if len(st.failed) != 2 {
		t.Fatalf("expected both marked with export error, got %v", st.failed)
	}
}
