package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PendingExport identifies a transaction still waiting to be exported.
type PendingExport struct {
	UserID        string
	TransactionID string
}

// ListPendingExports returns up to limit transactions whose latest state has
// not reached the spreadsheet yet. Used by the worker's periodic sweep.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id FROM transactions
		WHERE sync_status = ?
		ORDER BY updated_at ASC
		LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.UserID, &p.TransactionID); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending exports: %w", err)
	}
	return out, nil
}

// MarkExported records a successful export of the transaction's current state.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked exported", "transaction_id", id)
	return nil
}

// MarkExportError records a failed export so the sweep can retry it later.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "transaction_id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}
