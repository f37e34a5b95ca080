// Package auth implements the authentication provider: email/password
// credentials hashed with bcrypt, and server-side sessions that survive
// restarts so a returning browser is signed back in from its cookie.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSessionTTL is how long a session stays valid without re-login.
	DefaultSessionTTL = 30 * 24 * time.Hour

	minPasswordLen = 8
	tokenBytes     = 24
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no valid session")
)

// User is an authenticated identity. The password hash never leaves the store.
type User struct {
	ID      string
	Email   string
	Created time.Time
}

type (
	// UserStore persists accounts. CreateUser returns ErrEmailTaken when the
	// email is already registered; UserByEmail returns ErrInvalidCredentials
	// for unknown emails so callers cannot distinguish the two failure modes.
	UserStore interface {
		CreateUser(ctx context.Context, email, passwordHash string) (User, error)
		UserByEmail(ctx context.Context, email string) (User, string, error)
	}

	// SessionStore persists sessions keyed by the SHA-256 of the token, so a
	// leaked database does not yield usable cookies.
	SessionStore interface {
		CreateSession(ctx context.Context, tokenHash, userID string, expires time.Time) error
		SessionUser(ctx context.Context, tokenHash string, now time.Time) (User, error)
		DeleteSession(ctx context.Context, tokenHash string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}
)

// Service is the authentication provider the HTTP layer talks to.
type Service struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
}

func NewService(users UserStore, sessions SessionStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{users: users, sessions: sessions, ttl: ttl}
}

// SignUp registers a new account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, "", ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return User{}, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return User{}, "", err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return user, token, nil
}

// SignIn verifies credentials and opens a session. Bad email and bad password
// fail with the same message.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, hash, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			// Burn comparable time so unknown emails are not faster to probe
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000uGyyRF3TyzOyMvPwNJoYOyQvCGV3p0a6"), []byte(password))
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}

	slog.InfoContext(ctx, "User signed in", "user_id", user.ID)
	return user, token, nil
}

// SignOut revokes the session behind the given token. Unknown tokens are a
// no-op; the caller's cookie is cleared either way.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Resolve maps a session token to its user. This is the per-request
// "pending" lookup: it either restores the signed-in identity or reports
// ErrNoSession, and the gate routes accordingly.
func (s *Service) Resolve(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrNoSession
	}
	return s.sessions.SessionUser(ctx, hashToken(token), time.Now())
}

// PurgeExpired removes stale sessions. Called periodically from the server.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx, time.Now())
}

func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	expires := time.Now().Add(s.ttl)
	if err := s.sessions.CreateSession(ctx, hashToken(token), userID, expires); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
