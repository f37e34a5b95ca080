// Package services orchestrates writes against the document store: persist
// first, then fan out — a change event for the export worker and a fresh
// snapshot for live dashboard subscribers. Fan-out is best effort and never
// fails the user's request; the persisted write is the source of truth.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"planner/internal/amqp"
	"planner/internal/core"
	"planner/internal/store"
)

type (
	// EventPublisher is satisfied by *amqp.Client.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
	}

	// Notifier is satisfied by *live.Hub.
	Notifier interface {
		Broadcast(userID string, snapshot []core.Transaction)
	}
)

type TransactionService struct {
	store  store.Store
	events EventPublisher // nil when AMQP is not configured
	hub    Notifier       // nil in the worker process
}

func NewTransactionService(st store.Store, events EventPublisher, hub Notifier) *TransactionService {
	return &TransactionService{store: st, events: events, hub: hub}
}

// Create validates and persists a new transaction. A zero date defaults to
// the creation time, matching the document store contract.
func (s *TransactionService) Create(ctx context.Context, userID string, typ core.TxType, category string, amount core.Money, date time.Time) (string, error) {
	if date.IsZero() {
		date = time.Now()
	}
	tx := core.Transaction{Type: typ, Category: category, Amount: amount, Date: date}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.CreateTransaction(ctx, userID, tx)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	s.afterChange(ctx, userID, id, amqp.KindCreated)
	return id, nil
}

// Update replaces type, category and amount of an existing transaction.
// The record's id and date are untouched by contract.
func (s *TransactionService) Update(ctx context.Context, userID, id string, typ core.TxType, category string, amount core.Money) error {
	if err := s.store.UpdateTransaction(ctx, userID, id, typ, category, amount); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.afterChange(ctx, userID, id, amqp.KindUpdated)
	return nil
}

// Delete removes a transaction. The caller is responsible for having asked
// the user to confirm; this layer just executes.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.afterChange(ctx, userID, id, amqp.KindDeleted)
	return nil
}

// List returns the user's full collection, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// afterChange publishes the change event and re-emits the user's snapshot.
// Both are best effort: the write already succeeded and is never rolled back
// or retried here.
func (s *TransactionService) afterChange(ctx context.Context, userID, id, kind string) {
	if s.events != nil {
		if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(userID, id, kind)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"transaction_id", id, "kind", kind, "error", err)
		}
	}

	if s.hub != nil {
		snapshot, err := s.store.ListTransactions(ctx, userID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load snapshot for broadcast",
				"user_id", userID, "error", err)
			return
		}
		s.hub.Broadcast(userID, snapshot)
	}
}
