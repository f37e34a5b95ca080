// Package store declares the document-store contracts the rest of the
// application depends on. Implementations live in internal/storage (SQLite)
// and internal/store/memory.
package store

import (
	"context"
	"errors"

	"planner/internal/core"
)

// ErrNotFound is returned when an update or delete targets a transaction that
// does not exist in the caller's collection. Operations are always scoped to
// one user; another user's records are indistinguishable from absent ones.
var ErrNotFound = errors.New("transaction not found")

type (
	// TransactionWriter creates a record and assigns its identifier.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (id string, err error)
	}

	// TransactionUpdater replaces type, category and amount of an existing
	// record. The identifier and the original date are left untouched.
	TransactionUpdater interface {
		UpdateTransaction(ctx context.Context, userID, id string, typ core.TxType, category string, amount core.Money) error
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// TransactionLister returns the user's full collection ordered by date
	// descending. There is no pagination; the whole collection is loaded.
	TransactionLister interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}
)

// Store bundles the full document-store surface.
type Store interface {
	TransactionWriter
	TransactionUpdater
	TransactionDeleter
	TransactionLister
}
