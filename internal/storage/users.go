package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"planner/internal/auth"
)

// CreateUser implements auth.UserStore.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (auth.User, error) {
	id, err := newID()
	if err != nil {
		return auth.User{}, fmt.Errorf("generate user id: %w", err)
	}

	created := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, created.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return auth.User{}, auth.ErrEmailTaken
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)
	return auth.User{ID: id, Email: email, Created: created}, nil
}

// UserByEmail implements auth.UserStore. Unknown emails surface as
// auth.ErrInvalidCredentials so sign-in cannot leak which emails exist.
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (auth.User, string, error) {
	var (
		u    auth.User
		hash string
		unix int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &hash, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, "", auth.ErrInvalidCredentials
	}
	if err != nil {
		return auth.User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	u.Created = time.Unix(unix, 0).UTC()
	return u, hash, nil
}

// CreateSession implements auth.SessionStore.
func (r *SQLiteRepository) CreateSession(ctx context.Context, tokenHash, userID string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		tokenHash, userID, expires.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionUser implements auth.SessionStore.
func (r *SQLiteRepository) SessionUser(ctx context.Context, tokenHash string, now time.Time) (auth.User, error) {
	var (
		u    auth.User
		unix int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.expires_at > ?`,
		tokenHash, now.Unix()).
		Scan(&u.ID, &u.Email, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNoSession
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get session user: %w", err)
	}
	u.Created = time.Unix(unix, 0).UTC()
	return u, nil
}

// DeleteSession implements auth.SessionStore.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions implements auth.SessionStore.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}
