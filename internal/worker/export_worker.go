// Package worker runs the Google Sheets export pipeline. It reacts to
// transaction change events from the web app and periodically sweeps records
// whose export is still pending, so spreadsheet state converges even after
// broker downtime.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"planner/internal/amqp"
	"planner/internal/core"
	"planner/internal/storage"
	"planner/internal/store"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	ListPendingExports(ctx context.Context, limit int) ([]storage.PendingExport, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// Exporter mirrors the Sheets client: one row per transaction, keyed by ID.
type Exporter interface {
	UpsertTransaction(ctx context.Context, userID string, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

type ExportWorker struct {
	store     ExportStore
	exporter  Exporter
	batchSize int
	interval  time.Duration
}

func NewExportWorker(store ExportStore, exporter Exporter, batchSize int, interval time.Duration) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		interval:  interval,
	}
}

// HandleEvent processes one change event. Returning an error makes the
// consumer nack with requeue, so failed exports are retried by the broker.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if event.Kind == amqp.KindDeleted {
		if err := w.exporter.DeleteTransaction(ctx, event.TransactionID); err != nil {
			return fmt.Errorf("delete exported row: %w", err)
		}
		return nil
	}

	tx, err := w.store.GetTransaction(ctx, event.UserID, event.TransactionID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between publish and consume. Make sure no stale row stays.
		slog.InfoContext(ctx, "Transaction gone before export, removing row",
			"transaction_id", event.TransactionID)
		return w.exporter.DeleteTransaction(ctx, event.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", event.TransactionID, err)
	}

	if err := w.exporter.UpsertTransaction(ctx, event.UserID, tx); err != nil {
		if markErr := w.store.MarkExportError(ctx, event.TransactionID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", event.TransactionID, "error", markErr)
		}
		return fmt.Errorf("export transaction %s: %w", event.TransactionID, err)
	}

	return w.store.MarkExported(ctx, event.TransactionID)
}

// ProcessPending exports up to one batch of records still marked pending.
// Individual failures are marked and skipped so one bad record cannot stall
// the rest of the batch.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending exports", "count", len(pending))

	for _, p := range pending {
		tx, err := w.store.GetTransaction(ctx, p.UserID, p.TransactionID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction",
				"transaction_id", p.TransactionID, "error", err)
			continue
		}

		if err := w.exporter.UpsertTransaction(ctx, p.UserID, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"transaction_id", p.TransactionID, "error", err)
			if markErr := w.store.MarkExportError(ctx, p.TransactionID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error",
					"transaction_id", p.TransactionID, "error", markErr)
			}
			continue
		}

		if err := w.store.MarkExported(ctx, p.TransactionID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction exported",
				"transaction_id", p.TransactionID, "error", err)
		}
	}

	return nil
}

// Run sweeps pending exports on the configured interval until ctx ends.
func (w *ExportWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Export sweep started",
		"interval", w.interval, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Export sweep stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Export sweep failed", "error", err)
			}
		}
	}
}
