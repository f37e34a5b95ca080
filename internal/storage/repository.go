package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"planner/internal/auth"
	"planner/internal/core"
	"planner/internal/store"

	_ "modernc.org/sqlite"
)

// Sync states for the Google Sheets export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// SQLiteRepository backs the document store, the user accounts and the
// sessions with a single SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.Store       = (*SQLiteRepository)(nil)
	_ auth.UserStore    = (*SQLiteRepository)(nil)
	_ auth.SessionStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction implements store.TransactionWriter.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}

	now := time.Now().Unix()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, category, amount_cents, date, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(tx.Type), tx.Category, tx.Amount.Cents, tx.Date.Unix(), SyncPending, now, now)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", id,
		"user_id", userID,
		"type", tx.Type,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	return id, nil
}

// UpdateTransaction implements store.TransactionUpdater. Only type, category
// and amount are replaced; id and date stay as they were at creation.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, typ core.TxType, category string, amount core.Money) error {
	if !typ.Valid() {
		return core.ErrInvalidType
	}
	if strings.TrimSpace(category) == "" {
		return core.ErrEmptyCategory
	}
	if err := amount.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, category = ?, amount_cents = ?, sync_status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(typ), category, amount.Cents, SyncPending, time.Now().Unix(), id, userID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", id,
		"user_id", userID,
		"type", typ,
		"category", category,
		"amount_cents", amount.Cents)

	return nil
}

// DeleteTransaction implements store.TransactionDeleter. Hard delete; there
// is no history or soft-delete state.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

// ListTransactions implements store.TransactionLister: the user's full
// collection, newest first. No pagination; the dashboard aggregates in memory.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, amount_cents, date
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx    core.Transaction
			typ   string
			cents int64
			unix  int64
		)
		if err := rows.Scan(&tx.ID, &typ, &tx.Category, &cents, &unix); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TxType(typ)
		tx.Amount = core.Money{Cents: cents}
		tx.Date = time.Unix(unix, 0).UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction fetches one record from the user's collection.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var (
		tx    core.Transaction
		typ   string
		cents int64
		unix  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, category, amount_cents, date
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&tx.ID, &typ, &tx.Category, &cents, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	tx.Type = core.TxType(typ)
	tx.Amount = core.Money{Cents: cents}
	tx.Date = time.Unix(unix, 0).UTC()
	return tx, nil
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
