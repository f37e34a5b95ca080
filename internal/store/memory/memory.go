// Package memory provides an in-memory implementation of the document store
// and the auth stores. It backs the "memory" data backend for local
// development and serves as the fake behind handler and service tests.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"planner/internal/auth"
	"planner/internal/core"
	"planner/internal/store"
)

type userRecord struct {
	user auth.User
	hash string
}

type sessionRecord struct {
	userID  string
	expires time.Time
}

type Store struct {
	mu       sync.Mutex
	txs      map[string][]core.Transaction // userID -> records, unordered
	users    map[string]userRecord         // email -> record
	sessions map[string]sessionRecord      // token hash -> record
}

var (
	_ store.Store       = (*Store)(nil)
	_ auth.UserStore    = (*Store)(nil)
	_ auth.SessionStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		txs:      make(map[string][]core.Transaction),
		users:    make(map[string]userRecord),
		sessions: make(map[string]sessionRecord),
	}
}

// CreateTransaction implements store.TransactionWriter.
func (s *Store) CreateTransaction(_ context.Context, userID string, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := newID()
	if err != nil {
		return "", err
	}
	tx.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[userID] = append(s.txs[userID], tx)
	return id, nil
}

// UpdateTransaction implements store.TransactionUpdater.
func (s *Store) UpdateTransaction(_ context.Context, userID, id string, typ core.TxType, category string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs[userID] {
		if tx.ID != id {
			continue
		}
		updated := tx
		updated.Type = typ
		updated.Category = category
		updated.Amount = amount
		if err := updated.Validate(); err != nil {
			return err
		}
		s.txs[userID][i] = updated
		return nil
	}
	return store.ErrNotFound
}

// DeleteTransaction implements store.TransactionDeleter.
func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.txs[userID]
	for i, tx := range list {
		if tx.ID == id {
			s.txs[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ListTransactions implements store.TransactionLister: a copy of the user's
// collection, newest first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.txs[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// CreateUser implements auth.UserStore.
func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return auth.User{}, auth.ErrEmailTaken
	}
	id, err := newID()
	if err != nil {
		return auth.User{}, err
	}
	u := auth.User{ID: id, Email: email, Created: time.Now()}
	s.users[email] = userRecord{user: u, hash: passwordHash}
	return u, nil
}

// UserByEmail implements auth.UserStore.
func (s *Store) UserByEmail(_ context.Context, email string) (auth.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[email]
	if !ok {
		return auth.User{}, "", auth.ErrInvalidCredentials
	}
	return rec.user, rec.hash, nil
}

// CreateSession implements auth.SessionStore.
func (s *Store) CreateSession(_ context.Context, tokenHash, userID string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenHash] = sessionRecord{userID: userID, expires: expires}
	return nil
}

// SessionUser implements auth.SessionStore.
func (s *Store) SessionUser(_ context.Context, tokenHash string, now time.Time) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[tokenHash]
	if !ok || !rec.expires.After(now) {
		return auth.User{}, auth.ErrNoSession
	}
	for _, ur := range s.users {
		if ur.user.ID == rec.userID {
			return ur.user, nil
		}
	}
	return auth.User{}, auth.ErrNoSession
}

// DeleteSession implements auth.SessionStore.
func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

// DeleteExpiredSessions implements auth.SessionStore.
func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.sessions {
		if !rec.expires.After(now) {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
